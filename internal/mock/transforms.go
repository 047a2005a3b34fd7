package mock

import (
	"strconv"

	"github.com/tidwall/gjson"
)

// Defaults 返回内置的 Factorial 权限改写注册表。
// 改写内容属于配置性质：每个函数只是把特定权限开关置为放行。
func Defaults(base string) *Registry {
	r := NewRegistry()
	r.Register(base+"/companies", CompanyPermissions)
	r.Register(base+"/leaves", LeaveEditable)
	return r
}

// CompanyPermissions 放开公司记录上的考勤审批与薪酬访问权限。
// 响应体为公司记录数组，permissions 下的分支可选，缺失时跳过该记录。
func CompanyPermissions(tx *Tx) error {
	root := gjson.Parse(tx.Body())
	if !root.IsArray() {
		return nil
	}
	n := len(root.Array())
	for i := 0; i < n; i++ {
		p := strconv.Itoa(i) + ".permissions"
		if err := tx.SetIfPresent(p+".attendance", p+".attendance.approve", true); err != nil {
			return err
		}
		if err := tx.SetIfPresent(p+".payroll", p+".payroll.access", true); err != nil {
			return err
		}
	}
	return nil
}

// LeaveEditable 将请假记录全部置为可编辑
func LeaveEditable(tx *Tx) error {
	root := gjson.Parse(tx.Body())
	if !root.IsArray() {
		return nil
	}
	n := len(root.Array())
	for i := 0; i < n; i++ {
		idx := strconv.Itoa(i)
		if err := tx.SetIfPresent(idx+".id", idx+".editable", true); err != nil {
			return err
		}
	}
	return nil
}
