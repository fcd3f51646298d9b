package auth

import orasauth "oras.land/oras-go/v2/registry/remote/auth"

// Credential turns a resolved token into the orasauth.Credential shape the
// OCI client expects. GitHub tokens are bearer tokens with no separate
// username, so an empty username means "treat password as the token".
func Credential(username, password string) orasauth.Credential {
	if username == "" {
		return orasauth.Credential{
			RefreshToken: password,
		}
	}
	return orasauth.Credential{
		Username: username,
		Password: password,
	}
}
