package diag

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOrdering(t *testing.T) {
	c := NewCollector(nil)
	c.Record(SeverityError, SourceConsole, "first")
	c.Record(SeverityWarning, SourceConsole, "second")
	c.Record(SeverityError, SourceException, "third")

	events := c.Events()
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, i, ev.Seq)
	}
	assert.Equal(t, "first", events[0].Message)
	assert.Equal(t, SourceException, events[2].Source)
}

func TestIgnoreRulesFilterButKeep(t *testing.T) {
	c := NewCollector(DefaultIgnoreRules)
	c.Record(SeverityError, SourceConsole, "Failed to load resource: the server responded with a status of 404 (Not Found)")
	c.Record(SeverityError, SourceConsole, "GET http://localhost:3000/favicon.ico 404")
	c.Record(SeverityError, SourceException, "Uncaught TypeError: p.setup is not a function")

	events := c.Events()
	require.Len(t, events, 3, "filtered events must stay in the raw log")
	assert.True(t, events[0].Filtered)
	assert.True(t, events[1].Filtered)
	assert.False(t, events[2].Filtered)

	blocking := c.Blocking()
	require.Len(t, blocking, 1)
	assert.Equal(t, "Uncaught TypeError: p.setup is not a function", blocking[0].Message)
}

func TestIgnoredErrorsNeverBlock(t *testing.T) {
	c := NewCollector([]string{"favicon.ico"})
	for i := 0; i < 50; i++ {
		c.Record(SeverityError, SourceConsole, "favicon.ico missing")
	}
	assert.False(t, c.HasBlocking())
	assert.Empty(t, c.Blocking())
	assert.Len(t, c.Events(), 50)
}

func TestMatchingIsCaseSensitiveSubstring(t *testing.T) {
	c := NewCollector([]string{"Not Found"})
	c.Record(SeverityError, SourceConsole, "resource not found")
	assert.True(t, c.HasBlocking(), "substring match must not normalize case")

	c2 := NewCollector([]string{"Not Found"})
	c2.Record(SeverityError, SourceConsole, "resource Not Found")
	assert.False(t, c2.HasBlocking())
}

func TestWarningsView(t *testing.T) {
	c := NewCollector(nil)
	c.Record(SeverityWarning, SourceConsole, "slow frame")
	c.Record(SeverityError, SourceConsole, "boom")
	c.Record(SeverityWarning, SourceConsole, "snapshot skipped")

	warns := c.Warnings()
	require.Len(t, warns, 2)
	assert.Equal(t, "slow frame", warns[0].Message)
	assert.False(t, c.Blocking()[0].Filtered)
}

func TestConcurrentRecord(t *testing.T) {
	c := NewCollector(nil)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.Record(SeverityLog, SourceConsole, fmt.Sprintf("g%d-%d", n, j))
			}
		}(i)
	}
	wg.Wait()

	events := c.Events()
	require.Len(t, events, 200)
	for i, ev := range events {
		assert.Equal(t, i, ev.Seq)
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "hello", "hello"},
		{"quoted json bytes", []byte(`"oops"`), "oops"},
		{"number", 42, "42"},
		{"bool", true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Coerce(tt.in))
		})
	}
}
