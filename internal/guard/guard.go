package guard

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ccastromar/mirofish-console/internal/session"
)

// Access tells who may open a route.
type Access int

const (
	Public       Access = iota
	RequiresAuth        // logged-in users only
	GuestOnly           // logged-out users only (login page)
)

// Route is one navigable view of the console.
type Route struct {
	Name   string
	Path   string // may hold :param segments
	Access Access
}

const (
	HomePath  = "/"
	LoginPath = "/login"
)

// Routes is the console's route table.
var Routes = []Route{
	{Name: "home", Path: HomePath, Access: RequiresAuth},
	{Name: "login", Path: LoginPath, Access: GuestOnly},
	{Name: "settings", Path: "/settings", Access: RequiresAuth},
	{Name: "history", Path: "/history", Access: RequiresAuth},
	{Name: "report", Path: "/report/:id", Access: RequiresAuth},
}

// ByName returns the route registered under name.
func ByName(name string) (Route, bool) {
	for _, r := range Routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

// Match resolves a concrete path like /report/r_42 to its route and params.
func Match(path string) (Route, map[string]string, bool) {
	segs := split(path)
	for _, r := range Routes {
		pattern := split(r.Path)
		if len(pattern) != len(segs) {
			continue
		}
		params := map[string]string{}
		ok := true
		for i, p := range pattern {
			if strings.HasPrefix(p, ":") {
				params[p[1:]] = segs[i]
				continue
			}
			if p != segs[i] {
				ok = false
				break
			}
		}
		if ok {
			return r, params, true
		}
	}
	return Route{}, nil, false
}

func split(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// Decision is the outcome of a navigation check.
type Decision struct {
	Allowed  bool
	Redirect string // set when !Allowed
}

// Evaluate decides whether s may open target. It is a pure function of its
// arguments: no storage is read.
func Evaluate(target Route, path string, s session.Session) Decision {
	switch target.Access {
	case RequiresAuth:
		if !s.Authenticated {
			q := url.Values{}
			if path != "" {
				q.Set("redirect", path)
			}
			redirect := LoginPath
			if enc := q.Encode(); enc != "" {
				redirect += "?" + enc
			}
			return Decision{Redirect: redirect}
		}
	case GuestOnly:
		if s.Authenticated {
			return Decision{Redirect: HomePath}
		}
	}
	return Decision{Allowed: true}
}

// ErrLoginRequired is matched by RedirectError when login is needed.
var ErrLoginRequired = errors.New("login required")

// ErrAlreadyLoggedIn is matched by RedirectError on guest-only routes.
var ErrAlreadyLoggedIn = errors.New("already logged in")

// RedirectError reports a refused navigation.
type RedirectError struct {
	Route    Route
	Redirect string
	Username string // set when the refusal is due to an existing login
	reason   error
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("%s: %s (redirect to %s)", e.Route.Name, e.reason, e.Redirect)
}

func (e *RedirectError) Unwrap() error { return e.reason }

// Check is Evaluate returning an error for refused navigation.
func Check(target Route, path string, s session.Session) error {
	d := Evaluate(target, path, s)
	if d.Allowed {
		return nil
	}
	if target.Access == GuestOnly {
		return &RedirectError{Route: target, Redirect: d.Redirect, Username: s.Username, reason: ErrAlreadyLoggedIn}
	}
	return &RedirectError{Route: target, Redirect: d.Redirect, reason: ErrLoginRequired}
}
