package main

import (
	"context"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/hazard-Tom2004/TESA-API/core/academic"
	"github.com/hazard-Tom2004/TESA-API/core/user"
)

// seed loads fake student accounts for local development.
func (cli *commandLine) seed(n int) error {
	ctx := context.Background()
	faker := gofakeit.New(0)

	for i := 0; i < n; i++ {
		now := time.Now().UTC()
		usr := user.User{
			ID:         uuid.New().String(),
			FullName:   faker.Name(),
			Email:      faker.Email(),
			Department: []string{randomChoice(faker, academic.Departments)},
			Level:      []string{randomChoice(faker, academic.Levels)},
			Role:       user.RoleStudent,
			Verified:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := usr.SetPassword(faker.Password(true, true, true, false, false, 12)); err != nil {
			return err
		}
		if err := cli.usrRepo.CreateUser(ctx, &usr); err != nil {
			return err
		}
		logger.Printf("created %s <%s>", usr.FullName, usr.Email)
	}
	return nil
}

func randomChoice(faker *gofakeit.Faker, vals []string) string {
	return vals[faker.Number(0, len(vals)-1)]
}
