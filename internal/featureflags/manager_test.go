package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager_Enabled(t *testing.T) {
	m := NewManager(" Bookmark_Dedupe = ON , comment_post_check=off, broken, =on, half=50%, all=100%, none=0%, junk=abc%")

	assert.True(t, m.Enabled(BookmarkDedupe, 0))
	assert.True(t, m.Enabled("BOOKMARK_DEDUPE", 9))
	assert.False(t, m.Enabled(CommentPostCheck, 1))
	assert.False(t, m.Enabled("missing", 1))
	assert.True(t, m.Enabled("all", 0))
	assert.False(t, m.Enabled("none", 1))
	assert.False(t, m.Enabled("junk", 1))
	assert.False(t, m.Enabled("half", 0), "partial rollouts exclude anonymous callers")
}

func TestManager_RolloutIsDeterministic(t *testing.T) {
	m := NewManager("half=50%")

	enabled := 0
	for uid := uint(1); uid <= 1000; uid++ {
		first := m.Enabled("half", uid)
		assert.Equal(t, first, m.Enabled("half", uid))
		if first {
			enabled++
		}
	}
	assert.InDelta(t, 500, enabled, 100)
}

func TestManager_NilIsAllOff(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled(BookmarkDedupe, 1))
}

func TestManager_SnapshotAndUnknown(t *testing.T) {
	m := NewManager("comment_post_check=on,typo_flag=on,another=off")

	assert.Equal(t, map[string]bool{
		BookmarkDedupe:   false,
		CommentPostCheck: true,
	}, m.Snapshot(1))
	assert.Equal(t, []string{"another", "typo_flag"}, m.Unknown())
}
