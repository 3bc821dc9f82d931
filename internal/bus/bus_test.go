package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMessageDeliveredOncePerListener(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := New()
	defer b.Shutdown()

	id1 := b.NewListener()
	id2 := b.NewListener()

	b.AddMessage("hello")
	require.Eventually(t, func() bool { return b.Status(id1) }, time.Second, time.Millisecond)

	msg1, ok := b.GetMessage(id1)
	require.True(t, ok)
	assert.Equal(t, "hello", msg1)

	_, ok = b.GetMessage(id1)
	assert.False(t, ok, "message must not be delivered twice to the same listener")

	msg2, ok := b.GetMessage(id2)
	require.True(t, ok)
	assert.Equal(t, "hello", msg2, "every live listener gets its own delivery")
}

func TestLateListenerMissesEarlierMessages(t *testing.T) {
	b := New()
	defer b.Shutdown()

	b.AddMessage("before")
	id := b.NewListener()

	require.Never(t, func() bool { return b.Status(id) }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestSubmissionOrderPreserved(t *testing.T) {
	b := New()
	defer b.Shutdown()

	id := b.NewListener()
	b.AddMessage("one")
	b.AddMessage("two")
	b.AddMessage("three")

	require.Eventually(t, func() bool { return b.Status(id) }, time.Second, time.Millisecond)

	var got []string
	for i := 0; i < 3; i++ {
		require.Eventually(t, func() bool { return b.Status(id) }, time.Second, time.Millisecond)
		msg, ok := b.GetMessage(id)
		require.True(t, ok)
		got = append(got, msg)
	}

	assert.Equal(t, []string{"one", "two", "three"}, got)
}

func TestWarningAndErrorTagging(t *testing.T) {
	b := New()
	defer b.Shutdown()

	id := b.NewListener()
	b.Warningf("disk at %d%%", 90)
	b.Errorf("write failed: %s", "disk full")

	require.Eventually(t, func() bool { return b.Status(id) }, time.Second, time.Millisecond)
	msg, _ := b.GetMessage(id)
	assert.Equal(t, "warning|disk at 90%", msg)

	require.Eventually(t, func() bool { return b.Status(id) }, time.Second, time.Millisecond)
	msg, _ = b.GetMessage(id)
	assert.Equal(t, "error|write failed: disk full", msg)
}

func TestRemoveListenerStopsDelivery(t *testing.T) {
	b := New()
	defer b.Shutdown()

	id := b.NewListener()
	b.RemoveListener(id)
	b.AddMessage("gone")

	time.Sleep(50 * time.Millisecond)
	assert.False(t, b.Status(id))
}
