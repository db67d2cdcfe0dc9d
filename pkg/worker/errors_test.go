package worker

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ToolmanP/forumactif-archiver/pkg/client"
)

func TestParsingErrorSnippet(t *testing.T) {
	u, _ := url.Parse("http://forum.example.com/memberlist")
	page, err := client.NewPage(u, 200, "text/html; charset=utf-8", []byte("<html>"+strings.Repeat("a", 3*snippetLength)+"</html>"))
	require.NoError(t, err)

	perr := newParsingError(page, "member row")
	require.Len(t, perr.Snippet, snippetLength)
	require.Equal(t, "http://forum.example.com/memberlist", perr.URL)
	require.Contains(t, perr.Error(), "member row")
}

func TestExportErrorMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrMemberPageBlocked, "bloqué"},
		{ErrMemberPageBlocked, "gocr"},
		{client.ErrUnableToConnect, "Impossible de se connecter"},
		{&ParsingError{URL: "http://forum.example.com/t1-a"}, "/t1-a"},
		{fmt.Errorf("wrapped: %w", &GocrNotInstalledError{Exe: "/usr/bin/gocr"}), "/usr/bin/gocr"},
		{errors.New("boom"), "relancez le script"},
	}
	for _, c := range cases {
		e := &ExportError{Err: c.err, Saved: true}
		require.Contains(t, e.Message(), c.want)
		require.ErrorIs(t, e, c.err)
	}
}
