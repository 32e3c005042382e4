package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
)

type newAccount struct {
	name, uname, email, pwd string
	isAdmin, isTeacher      bool
	studentID               string
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(ctx context.Context, acc newAccount) error {
	usr := user.User{
		Name:     core.CleanString(acc.name),
		Username: core.CleanString(acc.uname, true /* lower */),
		Email:    core.CleanString(acc.email, true /* lower */),
		IsActive: true,
	}
	if usr.Username != "" {
		if err := cli.validate.Var(usr.Username, "min=3,alphanum_"); err != nil {
			return errors.Wrap(err, "invalid username")
		}
	}
	if usr.Email != "" {
		if err := cli.validate.Var(usr.Email, "email"); err != nil {
			return errors.Wrap(err, "invalid email")
		}
	}

	switch {
	case acc.isAdmin:
		usr.Roles = append([]string(nil), user.AllRoles...)
	case acc.isTeacher:
		usr.Roles = []string{user.RoleTeacher}
	}
	if acc.studentID != "" {
		if _, err := cli.rosterSvc.GetStudent(ctx, acc.studentID); err != nil {
			return errors.Wrap(err, "finding student")
		}
		usr.StudentID = acc.studentID
		usr.Roles = append(usr.Roles, user.RoleStudent)
	}
	if usr.Name == "" {
		usr.Name = usr.Username
	}

	if err := usr.SetPassword(acc.pwd); err != nil {
		return err
	}
	_, err := cli.usrSvc.UpdateOrCreate(ctx, usr)
	return err
}
