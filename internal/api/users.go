package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// User is a platform user found by a lookup.
type User struct {
	HUID       uuid.UUID `json:"user_huid"`
	ADLogin    *string   `json:"ad_login"`
	ADDomain   *string   `json:"ad_domain"`
	Name       string    `json:"name"`
	Company    *string   `json:"company"`
	Position   *string   `json:"company_position"`
	Department *string   `json:"department"`
	Emails     []string  `json:"emails"`
	Kind       string    `json:"user_kind"`
}

var userByHUIDMethod = &Method{
	Name: "search_user_by_huid",
	StatusHandlers: map[int]StatusHandler{
		http.StatusNotFound: func(r *Response) error {
			return &UserNotFoundError{r.methodError("user not found")}
		},
	},
}

// SearchUserByHUID looks a user up by id.
func (c *Caller) SearchUserByHUID(ctx context.Context, botID, huid uuid.UUID) (*User, error) {
	var user User
	err := c.Call(ctx, botID, userByHUIDMethod, request{
		verb:  http.MethodGet,
		path:  "/api/v3/botx/users/by_huid",
		query: url.Values{"user_huid": {huid.String()}},
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
