package auth

import (
	"fmt"
	"roomchat/contract"
	"roomchat/domain"
	"roomchat/errors"
)

// Authorize is the role policy applied in front of protected handlers.
func Authorize(user domain.User, required domain.Role) bool {
	return user.Role == required
}

// Authenticator resolves a bearer token to a stored user.
type Authenticator struct {
	verifier contract.Verifier
	users    contract.IUserRepository
}

func NewAuthenticator(verifier contract.Verifier, users contract.IUserRepository) *Authenticator {
	return &Authenticator{verifier: verifier, users: users}
}

// Authenticate fails with ErrAuthentication when the token is invalid or its
// subject no longer exists.
func (a *Authenticator) Authenticate(token string) (domain.User, error) {
	username, err := a.verifier.Verify(token)
	if err != nil {
		return domain.User{}, err
	}
	user, err := a.users.GetUserByUsername(username)
	if errors.Is(err, errors.ErrNotFound) {
		return domain.User{}, fmt.Errorf("%w: unknown user %q", errors.ErrAuthentication, username)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return user, nil
}
