package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permock/internal/logger"
	"permock/pkg/domain"
)

type fakeRecorder struct {
	observations []domain.Observation
	changes      []domain.FieldChange
}

func (f *fakeRecorder) RecordObservation(_ context.Context, obs domain.Observation) error {
	f.observations = append(f.observations, obs)
	return nil
}

func (f *fakeRecorder) RecordChanges(_ context.Context, _, _ string, changes []domain.FieldChange) error {
	f.changes = append(f.changes, changes...)
	return nil
}

func desc(url string) domain.RequestDescriptor {
	return domain.RequestDescriptor{Trace: "t-1", URL: url, Method: "GET", StatusCode: 200}
}

func TestDispatchMockableMutates(t *testing.T) {
	rec := &fakeRecorder{}
	d := NewDispatcher(Defaults("https://api.factorialhr.com"), rec, logger.NewNop())

	out := d.Dispatch(context.Background(),
		desc("https://api.factorialhr.com/companies"),
		domain.ClassMockable,
		`[{"permissions":{"attendance":{"approve":false}}}]`)

	assert.Equal(t, domain.ResultMutated, out.Result)
	assert.Equal(t, `[{"permissions":{"attendance":{"approve":true}}}]`, out.Body)
	require.Len(t, out.Changes, 1)
	assert.Len(t, rec.changes, 1)
	assert.Empty(t, rec.observations)
}

func TestDispatchMockableNoChangeIsObserved(t *testing.T) {
	rec := &fakeRecorder{}
	d := NewDispatcher(Defaults("https://api.factorialhr.com"), rec, logger.NewNop())

	body := `[{"permissions":{}}]`
	out := d.Dispatch(context.Background(),
		desc("https://api.factorialhr.com/companies"), domain.ClassMockable, body)

	assert.Equal(t, domain.ResultObserved, out.Result)
	assert.Equal(t, body, out.Body)
	assert.Empty(t, rec.changes)
}

func TestDispatchMockableWithoutTransform(t *testing.T) {
	rec := &fakeRecorder{}
	d := NewDispatcher(NewRegistry(), rec, logger.NewNop())

	body := `[{"id":1}]`
	out := d.Dispatch(context.Background(),
		desc("https://api.factorialhr.com/companies"), domain.ClassMockable, body)

	// 配置缺陷降级为诊断，不是运行时错误
	assert.Equal(t, domain.ResultObserved, out.Result)
	assert.Equal(t, body, out.Body)
	require.Len(t, rec.observations, 1)
	assert.Equal(t, domain.ClassMockable, rec.observations[0].Class)
}

func TestDispatchUnknownObserves(t *testing.T) {
	rec := &fakeRecorder{}
	d := NewDispatcher(Defaults("https://api.factorialhr.com"), rec, logger.NewNop())

	body := `{"x":1}`
	out := d.Dispatch(context.Background(),
		desc("https://api.factorialhr.com/graphql"), domain.ClassUnknown, body)

	assert.Equal(t, domain.ResultObserved, out.Result)
	assert.Equal(t, body, out.Body)
	require.Len(t, rec.observations, 1)
	assert.Equal(t, "https://api.factorialhr.com/graphql", rec.observations[0].URL)
	assert.Equal(t, body, rec.observations[0].Body)
}

func TestDispatchTransformErrorFallsBack(t *testing.T) {
	reg := NewRegistry()
	reg.Register("https://api.factorialhr.com/companies", func(tx *Tx) error {
		return errors.New("unexpected shape")
	})
	d := NewDispatcher(reg, nil, logger.NewNop())

	body := `[{"id":1}]`
	out := d.Dispatch(context.Background(),
		desc("https://api.factorialhr.com/companies"), domain.ClassMockable, body)

	assert.Equal(t, domain.ResultObserved, out.Result)
	assert.Equal(t, body, out.Body)
}

func TestDispatchTransformPanicIsContained(t *testing.T) {
	reg := NewRegistry()
	reg.Register("https://api.factorialhr.com/companies", func(tx *Tx) error {
		panic("boom")
	})
	d := NewDispatcher(reg, nil, logger.NewNop())

	body := `[{"id":1}]`
	var out Outcome
	assert.NotPanics(t, func() {
		out = d.Dispatch(context.Background(),
			desc("https://api.factorialhr.com/companies"), domain.ClassMockable, body)
	})
	assert.Equal(t, domain.ResultObserved, out.Result)
	assert.Equal(t, body, out.Body)
}

func TestDispatchIdempotent(t *testing.T) {
	d := NewDispatcher(Defaults("https://api.factorialhr.com"), nil, logger.NewNop())
	target := desc("https://api.factorialhr.com/companies")

	first := d.Dispatch(context.Background(), target, domain.ClassMockable,
		`[{"permissions":{"attendance":{"approve":false},"payroll":{"access":false}}}]`)
	require.Equal(t, domain.ResultMutated, first.Result)

	second := d.Dispatch(context.Background(), target, domain.ClassMockable, first.Body)
	assert.Equal(t, domain.ResultObserved, second.Result)
	assert.Equal(t, first.Body, second.Body)
}
