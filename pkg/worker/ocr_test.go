package worker

import (
	"bytes"
	"context"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ToolmanP/forumactif-archiver/pkg/storage"
)

func TestTooLong(t *testing.T) {
	cases := []struct {
		columns []int
		want    bool
	}{
		{nil, false},
		{[]int{10, 30}, false},
		{[]int{53}, false},
		{[]int{54}, true},
		{[]int{59}, true},
	}
	for _, c := range cases {
		img, err := png.Decode(bytes.NewReader(drawing(t, 60, 10, c.columns...)))
		require.NoError(t, err)
		require.Equal(t, c.want, tooLong(img), "%v", c.columns)
	}
}

func TestGocrNotInstalled(t *testing.T) {
	g := &Gocr{Exe: filepath.Join(t.TempDir(), "gocr")}
	_, err := g.Text(context.Background(), "mail.png")
	var notInstalled *GocrNotInstalledError
	require.ErrorAs(t, err, &notInstalled)
	require.Contains(t, (&ExportError{Err: err}).Message(), "gocr")
}

func TestCutMailIsImplausible(t *testing.T) {
	f := newFakeForum(t)
	f.images["http://img.example.com/mail/alice.png"] = drawing(t, 60, 10, 10, 58)
	a := newTestArchiver(t, f, storage.NewFileStore(filepath.Join(t.TempDir(), "save.json")))
	require.NoError(t, a.Root().Export(context.Background(), a.Env()))

	_, alice := find(a.Root(), func(u *User) bool { return u.Name == "Alice" })
	require.Equal(t, "alice@example.com", alice.Mail)
	require.Equal(t, TrustImplausible, alice.Trust)
}
