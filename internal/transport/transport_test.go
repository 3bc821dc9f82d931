package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/piccolo2go/piccolo/internal/dispatcher"
)

type fakeDispatching struct {
	received dispatcher.Task
	resp     dispatcher.Response
}

func (f *fakeDispatching) Submit(task dispatcher.Task) dispatcher.Response {
	f.received = task
	return f.resp
}

func TestDirectAdapterForwardsSubmitAndName(t *testing.T) {
	fake := &fakeDispatching{resp: dispatcher.Response{Status: dispatcher.OK, Value: "ack"}}
	adapter := NewDirect("cli", fake)

	assert.Equal(t, "cli", adapter.Name())

	task := dispatcher.Task{Command: "status", Component: "coordinator"}
	resp := adapter.Submit(task)

	assert.Equal(t, task, fake.received)
	assert.Equal(t, dispatcher.OK, resp.Status)
	assert.Equal(t, "ack", resp.Value)
}
