package main

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hazard-Tom2004/TESA-API/core"
	"github.com/hazard-Tom2004/TESA-API/core/user"
)

// addUser creates or updates an admin account. CLI-created accounts skip
// email verification.
func (cli *commandLine) addUser(fullName, email, pwd string, super bool) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	role := user.RoleAdmin
	if super {
		role = user.RoleSuperAdmin
	}

	now := time.Now().UTC()
	var created bool
	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			ID:        uuid.New().String(),
			Email:     email,
			CreatedAt: now,
		}
		created = true
	}
	usr.FullName = core.CleanString(fullName)
	usr.Role = role
	usr.Verified = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if created {
		return cli.usrRepo.CreateUser(ctx, &usr)
	}
	return cli.usrRepo.UpdateUser(ctx, &usr)
}
