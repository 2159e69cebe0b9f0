package validate

import "regexp"

var (
	nameRe     = regexp.MustCompile(`^[a-zA-Z][a-zA-Z \-]{1,49}$`)
	usernameRe = regexp.MustCompile(`^\w{3,20}$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)

	passwordLower   = regexp.MustCompile(`[a-z]`)
	passwordUpper   = regexp.MustCompile(`[A-Z]`)
	passwordDigit   = regexp.MustCompile(`[0-9]`)
	passwordSpecial = regexp.MustCompile(`[#?!@$%^&*.\-_]`)
)

// Name accepts 2-50 characters of letters, spaces or hyphens.
func Name(s string) bool {
	return nameRe.MatchString(s)
}

// Username accepts 3-20 word characters.
func Username(s string) bool {
	return usernameRe.MatchString(s)
}

// Email checks the basic local@domain.tld shape.
func Email(s string) bool {
	return emailRe.MatchString(s)
}

// Password requires at least 8 characters with an upper-case letter, a
// lower-case letter, a digit and one of #?!@$%^&*.-_
func Password(s string) bool {
	return len(s) >= 8 &&
		passwordLower.MatchString(s) &&
		passwordUpper.MatchString(s) &&
		passwordDigit.MatchString(s) &&
		passwordSpecial.MatchString(s)
}
