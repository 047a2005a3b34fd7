package codec

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder 有状态的流式 UTF-8 解码器。
// 跨块拆分的多字节序列被暂存，直到后续块补齐或流结束时按替换符冲刷。
type Decoder struct {
	tr      transform.Transformer
	pending []byte
}

// NewDecoder 创建单次会话使用的解码器
func NewDecoder() *Decoder {
	return &Decoder{tr: unicode.UTF8.NewDecoder()}
}

// Write 喂入一个字节块并返回已可解码的文本。
// final 指示流是否已结束：false 时末尾不完整的多字节序列被保留到下一次调用，
// true 时强制冲刷，残缺序列以替换符输出。
func (d *Decoder) Write(chunk []byte, final bool) (string, error) {
	src := chunk
	if len(d.pending) > 0 {
		src = append(d.pending, chunk...)
		d.pending = nil
	}
	if len(src) == 0 {
		return "", nil
	}

	var out []byte
	buf := make([]byte, len(src)+64)
	for {
		nDst, nSrc, err := d.tr.Transform(buf, src, final)
		out = append(out, buf[:nDst]...)
		src = src[nSrc:]
		switch err {
		case nil:
			if len(src) == 0 {
				return string(out), nil
			}
		case transform.ErrShortDst:
			// 继续用同一块缓冲写剩余部分
		case transform.ErrShortSrc:
			if !final {
				d.pending = append([]byte(nil), src...)
				return string(out), nil
			}
			// final 时 UTF-8 解码器不会返回 ErrShortSrc，防御性兜底
			return string(out), nil
		default:
			return string(out), err
		}
	}
}

// Pending 返回暂存中尚未解码的字节数
func (d *Decoder) Pending() int {
	return len(d.pending)
}

// Encode 将文本一次性编码回字节序列，无内部状态
func Encode(text string) []byte {
	return []byte(text)
}
