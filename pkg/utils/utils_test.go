package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	now := time.Date(2014, time.March, 10, 18, 0, 0, 0, time.UTC)

	cases := []struct {
		in   string
		want time.Time
	}{
		{"Jeu 14 Fév 2013 - 15:34", time.Date(2013, time.February, 14, 15, 34, 0, 0, time.UTC)},
		{"Lun 3 Juil 2006 - 00:05", time.Date(2006, time.July, 3, 0, 5, 0, 0, time.UTC)},
		{"Mar 1 Juin 2010 - 23:59", time.Date(2010, time.June, 1, 23, 59, 0, 0, time.UTC)},
		{"Aujourd'hui - 08:02", time.Date(2014, time.March, 10, 8, 2, 0, 0, time.UTC)},
		{"Aujourd’hui à 08:02", time.Date(2014, time.March, 10, 8, 2, 0, 0, time.UTC)},
		{"Hier - 21:10", time.Date(2014, time.March, 9, 21, 10, 0, 0, time.UTC)},
		{"14/02/2013", time.Date(2013, time.February, 14, 0, 0, 0, 0, time.UTC)},
		{"12 Août 2011", time.Date(2011, time.August, 12, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := ParseDate(c.in, now)
		require.NoError(t, err, c.in)
		require.Equal(t, c.want.Unix(), got, c.in)
	}

	_, err := ParseDate("n'importe quoi", now)
	require.Error(t, err)
	_, err = ParseDate("Jeu 14 Xyz 2013 - 15:34", now)
	require.Error(t, err)
}

func TestMonth(t *testing.T) {
	names := []string{"Janv", "Fév", "Mar", "Avr", "Mai", "Juin", "Juil", "Août", "Sep", "Oct", "Nov", "Déc"}
	for i, name := range names {
		m, ok := Month(name)
		require.True(t, ok, name)
		require.Equal(t, time.Month(i+1), m, name)
	}
}

func TestPages(t *testing.T) {
	body := []byte(`<script type="text/javascript">
function do_pagination_start()
{
	var start = prompt("Aller à la page :", 1);
	start = (start > 4) ? 4 : start;
	start = (start - 1) * 50;
	window.location = "/f3p" + start + "-general";
}
</script>`)
	require.Equal(t, []int{0, 50, 100, 150}, Pages(body))
	require.Equal(t, []int{0}, Pages([]byte("<html></html>")))
}

func TestBuildPaths(t *testing.T) {
	require.Equal(t, "/f3-a", BuildForumPath("f", 3))
	require.Equal(t, "/c2p50-a", BuildForumPagePath("c", 2, 50))
	require.Equal(t, "/t12-a", BuildTopicPath(12))
	require.Equal(t, "/t12p25-a", BuildTopicPagePath(12, 25))
	require.Equal(t, "/g4-a", BuildGroupPath(4))
}

func TestSet(t *testing.T) {
	s := NewSet(1, 2)
	require.True(t, s.Has(1))
	require.False(t, s.Has(3))
	s.Add(3)
	s.Remove(1)
	require.Equal(t, 2, s.Len())
	s.Clear()
	require.Zero(t, s.Len())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
url: https://old.example/
admin_name: admin
admin_password: secret
rewrite_links: true
phpbb_url: http://new.example/forum/
retry_wait: 2s
state:
  backend: sqlite
  path: state.db
`), 0o644))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "old.example", c.URL)
	require.Equal(t, "http://new.example/forum", c.PhpbbURL)
	require.Equal(t, "phpbb_", c.TablePrefix)
	require.Equal(t, 2*time.Second, c.RetryWait)
	require.Equal(t, "sqlite", c.State.Backend)
	require.True(t, c.ExportSmilies)
	require.NoError(t, c.Validate())

	c.AdminPassword = ""
	c.State.Backend = "tape"
	err = c.Validate()
	require.ErrorContains(t, err, "admin_password")
	require.ErrorContains(t, err, "tape")
}

func TestProgressNil(t *testing.T) {
	var p *Progress
	require.NoError(t, p.Start())
	p.SetTotal(Users, 3)
	p.Increment(Users)
	require.Zero(t, p.Current(Users))
	require.NoError(t, p.Stop())
}
