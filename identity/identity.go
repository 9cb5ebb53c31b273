// Package identity describes the signed-in viewer supplied by the external
// identity provider.
package identity

// Viewer is the currently authenticated user. The zero value means nobody is signed in.
type Viewer struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// SignedIn reports whether the viewer carries a stable identifier.
func (v Viewer) SignedIn() bool {
	return v.ID != ""
}

// Provider supplies the current viewer.
type Provider interface {
	CurrentViewer() Viewer
}

// Static is a Provider that always returns the same viewer.
type Static Viewer

// CurrentViewer implements Provider.
func (s Static) CurrentViewer() Viewer {
	return Viewer(s)
}

// Anonymous is a Provider with nobody signed in.
var Anonymous Provider = Static{}
