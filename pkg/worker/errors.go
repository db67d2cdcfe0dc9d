package worker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ToolmanP/forumactif-archiver/pkg/client"
)

const snippetLength = 2000

// ParsingError reports a page whose layout is not the one expected. The
// markup does not change between attempts, so it is never retried.
type ParsingError struct {
	URL     string
	Snippet string
	Reason  string
}

func newParsingError(page *client.Page, reason string) *ParsingError {
	e := &ParsingError{Reason: reason}
	if page != nil {
		if page.URL != nil {
			e.URL = page.URL.String()
		}
		e.Snippet = string(page.Body)
		if len(e.Snippet) > snippetLength {
			e.Snippet = e.Snippet[:snippetLength]
		}
	}
	return e
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("unexpected page layout at %s: %s", e.URL, e.Reason)
}

var ErrMemberPageBlocked = errors.New(strings.TrimSpace(`
Vous avez été bloqué par forumactif. Attendez d'être débloqué avant de relancer le script (environ 24h).

Pour savoir si vous êtes bloqué, essayez d'accéder à la deuxième page de la gestion des utilisateurs dans votre panneau d'administration (Utilisateurs & Groupes > Gestion des utilisateurs). Si vous êtes bloqué, vous allez être redirigé vers la page d'accueil de votre panneau d'administration.

Les adresses e-mail affichées sous forme d'image sont déjà lues avec gocr et vous seront soumises pour confirmation à la fin de l'export.
`))

type GocrNotInstalledError struct {
	Exe string
}

func (e *GocrNotInstalledError) Error() string {
	return fmt.Sprintf("L'exécutable de gocr (%s) n'existe pas. Vérifiez que gocr est bien installé et que le chemin est correctement configuré dans le fichier config.yaml.", e.Exe)
}

// ExportError is returned by Archiver.Export once the partial tree has been
// saved.
type ExportError struct {
	Err   error
	Saved bool
}

func (e *ExportError) Error() string {
	return "export interrupted: " + e.Err.Error()
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// Message is the text shown to the operator.
func (e *ExportError) Message() string {
	var (
		parsing *ParsingError
		gocr    *GocrNotInstalledError
	)
	switch {
	case errors.Is(e.Err, ErrMemberPageBlocked):
		return ErrMemberPageBlocked.Error()
	case errors.As(e.Err, &gocr):
		return gocr.Error()
	case errors.Is(e.Err, client.ErrUnableToConnect):
		return "Impossible de se connecter. Vérifiez les identifiants de l'administrateur et votre connexion, puis relancez le script."
	case errors.As(e.Err, &parsing):
		return "Une page du forum n'a pas la structure attendue (" + parsing.URL + "). Les détails sont dans le fichier de log."
	}
	msg := "Une erreur est survenue. Les détails sont dans le fichier de log."
	if e.Saved {
		msg += " L'état a été sauvegardé, relancez le script pour reprendre l'exportation."
	}
	return msg
}
