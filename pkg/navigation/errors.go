package navigation

import (
	"github.com/foomo/hbkbrowser/pkg/utils"
	"github.com/pkg/errors"
)

var (
	// ErrSuperseded a newer navigation replaced the one this result belongs to
	ErrSuperseded = errors.New("navigation superseded")
	// ErrNoPage there is no selected page
	ErrNoPage = errors.New("no page selected")
	// ErrNotNavigable the link leaves the help or points into the current page
	ErrNotNavigable = errors.New("link is not navigable")
	// ErrInvalidLocale the locale is not a valid language tag
	ErrInvalidLocale = errors.New("invalid locale")
)

// IsCancellation the operation was abandoned, nothing to report to the user
func IsCancellation(err error) bool {
	return errors.Is(err, ErrSuperseded) || utils.IsContextErr(err)
}
