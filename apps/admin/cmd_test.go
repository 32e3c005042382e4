package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/alama/core/roster"
	"github.com/trezcool/alama/core/user"
	dummydb "github.com/trezcool/alama/storage/database/dummy"
	"github.com/trezcool/alama/tests"
)

type fixture struct {
	cli        *commandLine
	usrRepo    user.Repository
	rosterRepo roster.Repository
}

func setup(t *testing.T) fixture {
	db := dummydb.Open()
	f := fixture{
		usrRepo:    dummydb.NewUserRepository(db),
		rosterRepo: dummydb.NewRosterRepository(db),
	}
	f.cli = &commandLine{
		db:        &sql.DB{}, // never used: gooseRunFunc is mocked
		usrSvc:    user.NewService(f.usrRepo),
		rosterSvc: roster.NewService(f.rosterRepo),
		validate:  testutil.NewValidator(),
	}
	return f
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	f := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := f.cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}

	t.Run("memory engine", func(t *testing.T) {
		cli := *f.cli
		cli.db = nil
		assert.Equal(t, errNoSQLDatabase, cli.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	f := setup(t)

	usr := testutil.CreateUser(t, f.usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", "AWE@test.cd"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		var pwd string
		if e, ok := tt.extra.(extra); ok {
			pwd = e.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := f.cli.run(args)
			if err == nil {
				refreshedUsr, err := f.usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
				assert.NoError(t, refreshedUsr.CheckPassword(pwd))
			} else if errors.Cause(err) != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	class := testutil.CreateClass(t, f.rosterRepo, "sch", "6A")
	std := testutil.CreateStudent(t, f.rosterRepo, class.ID, "Amani")

	t.Run("usage", func(t *testing.T) {
		mockPassword("Secret#123")
		assert.Equal(t, errHelp, f.cli.run([]string{"admin", "adduser"}))
	})

	t.Run("invalid username", func(t *testing.T) {
		mockPassword("Secret#123")
		assert.Error(t, f.cli.run([]string{"admin", "adduser", "-username", "a-b"}))
	})

	t.Run("admin", func(t *testing.T) {
		mockPassword("Secret#123")
		require.NoError(t, f.cli.run([]string{"admin", "adduser", "-username", "Root", "-email", "root@test.cd", "-admin"}))

		usr, err := f.usrRepo.GetUserByUsernameOrEmail(ctx, "root")
		require.NoError(t, err)
		assert.ElementsMatch(t, user.AllRoles, usr.Roles)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword("Secret#123"))
	})

	t.Run("update existing", func(t *testing.T) {
		mockPassword("Other#456")
		require.NoError(t, f.cli.run([]string{"admin", "adduser", "-email", "root@test.cd", "-teacher", "-name", "Root Teacher"}))

		usr, err := f.usrRepo.GetUserByUsernameOrEmail(ctx, "root@test.cd")
		require.NoError(t, err)
		assert.Equal(t, []string{user.RoleTeacher}, usr.Roles)
		assert.Equal(t, "Root Teacher", usr.Name)
		assert.NoError(t, usr.CheckPassword("Other#456"))
	})

	t.Run("student account", func(t *testing.T) {
		mockPassword("Amani#789")
		require.Error(t, f.cli.run([]string{"admin", "adduser", "-username", "amani", "-student", "lol"}))
		require.NoError(t, f.cli.run([]string{"admin", "adduser", "-username", "amani", "-student", std.ID}))

		usr, err := f.usrRepo.GetUserByUsernameOrEmail(ctx, "amani")
		require.NoError(t, err)
		assert.Equal(t, std.ID, usr.StudentID)
		assert.True(t, usr.IsStudent())
	})
}

func Test_commandLine_importStudents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	class := testutil.CreateClass(t, f.rosterRepo, "sch", "6A")

	workbook := func(t *testing.T, names ...string) *bytes.Buffer {
		t.Helper()
		x := excelize.NewFile()
		defer x.Close()
		sheet := x.GetSheetName(0)
		require.NoError(t, x.SetCellValue(sheet, "A1", "Name"))
		for i, name := range names {
			require.NoError(t, x.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), name))
		}
		buf, err := x.WriteToBuffer()
		require.NoError(t, err)
		return buf
	}

	t.Run("unknown class", func(t *testing.T) {
		n, err := f.cli.importStudents(ctx, "lol", workbook(t, "Amani"))
		assert.Equal(t, 0, n)
		assert.Error(t, err)
	})

	t.Run("not a workbook", func(t *testing.T) {
		_, err := f.cli.importStudents(ctx, class.ID, bytes.NewBufferString("lol"))
		assert.Error(t, err)
	})

	t.Run("imported", func(t *testing.T) {
		n, err := f.cli.importStudents(ctx, class.ID, workbook(t, " Zoe ", "", "Amani"))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		students, err := f.rosterRepo.StudentsByClass(ctx, class.ID)
		require.NoError(t, err)
		require.Len(t, students, 2)
		assert.Equal(t, "Amani", students[0].Name)
		assert.Equal(t, "Zoe", students[1].Name)
	})
}
