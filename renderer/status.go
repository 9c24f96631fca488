package renderer

import "github.com/etnz/tradesim"

// Status is the active session as displayed.
type Status struct {
	Server    string
	User      string
	Portfolio string
	Owner     string // username of the portfolio's owner, when known
}

// NewStatus prepares the session id, and optionally the portfolio p as read
// from the backend, for display.
func NewStatus(server string, id tradesim.Identity, p *tradesim.Portfolio) *Status {
	s := &Status{Server: cell(server), User: id.UserID.String(), Portfolio: id.PortfolioID.String()}
	if p != nil && p.User != nil {
		s.Owner = cell(p.User.Username)
	}
	return s
}

// StatusMarkdown renders s.
func StatusMarkdown(s *Status) string {
	return renderTemplate("status.md", nil, s)
}
