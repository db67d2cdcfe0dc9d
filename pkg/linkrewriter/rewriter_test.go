package linkrewriter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type forums map[string]int

func (f forums) ForumID(key string) (int, bool) {
	id, ok := f[key]
	return id, ok
}

type users map[int]int

func (u users) UserID(id int) (int, bool) {
	n, ok := u[id]
	return n, ok
}

func TestRewrite(t *testing.T) {
	r := New("old.example", forums{"f3": 7, "c1": 1}, users{5: 60})

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"http://old.example/f3-general", "/viewforum.php?f=7", true},
		{"http://old.example/general-f3/", "/viewforum.php?f=7", true},
		{"http://old.example/general-f3.htm", "/viewforum.php?f=7", true},
		{"http://old.example/c1-categorie", "/viewforum.php?f=1", true},
		{"http://old.example/f9-deleted", "", false},
		{"http://old.example/u42", "", false},
		{"http://old.example/u5", "/memberlist.php?mode=viewprofile&u=60", true},
		{"http://old.example/u5-bob", "/memberlist.php?mode=viewprofile&u=60", true},
		{"http://old.example", "/", true},
		{"http://old.example/", "/", true},
		{"http://old.example/forum", "/", true},
		{"http://old.example/t12-bonjour", "/viewtopic.php?t=12", true},
		{"http://old.example/t12p50-bonjour", "/viewtopic.php?t=12", true},
		{"http://old.example/t12-bonjour#345", "/viewtopic.php?p=345#p345", true},
		{"http://old.example/bonjour-t12.htm", "/viewtopic.php?t=12", true},
		{"http://old.example/bonjour-t12-15.htm", "/viewtopic.php?t=12", true},
		{"http://old.example/viewtopic.forum?t=12", "/viewtopic.php?t=12", true},
		{"http://old.example/viewtopic.forum?p=345", "/viewtopic.php?p=345#p345", true},
		{"http://old.example/sujet-p345.htm", "/viewtopic.php?p=345#p345", true},
		{"http://other.example/f3-general", "", false},
		{"/f3-general", "", false},
		{"http://old.example/profile?mode=editprofile", "", false},
	}
	for _, c := range cases {
		got, ok := r.Rewrite(c.in)
		require.Equal(t, c.ok, ok, c.in)
		require.Equal(t, c.want, got, c.in)
	}
}

func TestRewriteWithoutLookups(t *testing.T) {
	r := New("old.example", nil, nil)
	_, ok := r.Rewrite("http://old.example/f3-general")
	require.False(t, ok)
	got, ok := r.Rewrite("http://old.example/t3-general")
	require.True(t, ok)
	require.Equal(t, "/viewtopic.php?t=3", got)
}
