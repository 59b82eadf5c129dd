// Package messages is the single place user-facing strings live. Both the
// server handlers and the client fall back to it, keyed by stable message
// keys rather than hardcoding strings at call sites, so a deployment can
// swap the catalog for another locale without touching handler code.
package messages

// Key identifies one user-facing message.
type Key string

const (
	InvalidCredentials Key = "invalid_credentials"
	NotAuthenticated   Key = "not_authenticated"
	AccessDenied       Key = "access_denied"
	UserNotFound       Key = "user_not_found"
	PostNotFound       Key = "post_not_found"
	DuplicateUsername  Key = "duplicate_username"
	AdminUndeletable   Key = "admin_undeletable"
	EmptyContent       Key = "empty_content"
	MissingFields      Key = "missing_fields"
	TooManyRequests    Key = "too_many_requests"

	LogoutDone      Key = "logout_done"
	UserDeleted     Key = "user_deleted"
	PostDeleted     Key = "post_deleted"
	PasswordUpdated Key = "password_updated"
	LoginDone       Key = "login_done"
	PostCreated     Key = "post_created"
	UserCreated     Key = "user_created"

	GenericError Key = "generic_error"
	NetworkError Key = "network_error"
)

// Catalog maps message keys to display strings for one locale.
type Catalog map[Key]string

// Default returns the Italian catalog the application ships with.
func Default() Catalog {
	return Catalog{
		InvalidCredentials: "Credenziali non valide",
		NotAuthenticated:   "Non autenticato",
		AccessDenied:       "Accesso negato",
		UserNotFound:       "Utente non trovato",
		PostNotFound:       "Post non trovato",
		DuplicateUsername:  "Nome utente già esistente",
		AdminUndeletable:   "Impossibile eliminare l'utente admin",
		EmptyContent:       "Il contenuto non può essere vuoto",
		MissingFields:      "Nome utente e password obbligatori",
		TooManyRequests:    "Troppe richieste, riprova più tardi",

		LogoutDone:      "Logout effettuato con successo",
		UserDeleted:     "Utente eliminato con successo",
		PostDeleted:     "Post eliminato con successo",
		PasswordUpdated: "Password aggiornata con successo",
		LoginDone:       "Accesso effettuato con successo",
		PostCreated:     "Post pubblicato",
		UserCreated:     "Utente creato con successo",

		GenericError: "Si è verificato un errore, riprova",
		NetworkError: "Errore di rete, riprova",
	}
}

// Resolve returns the string for key, falling back to the generic error
// message when the key is missing, and to the raw key when even that is
// absent (a partial override catalog should never leave the user blank).
func (c Catalog) Resolve(key Key) string {
	if s, ok := c[key]; ok {
		return s
	}
	if s, ok := c[GenericError]; ok {
		return s
	}
	return string(key)
}
