package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/alama/core/roster"
	"github.com/trezcool/alama/core/user"
	"github.com/trezcool/alama/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword        // mockable
	gooseRunFunc     = database.RunMigrations // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sql.DB // nil unless the postgres engine is used
	usrSvc    *user.Service
	rosterSvc *roster.Service
	validate  *validator.Validate
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-name NAME] [-admin] [-teacher] [-student STUDENT_ID] - add or update a user")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Println("  importstudents -class CLASS_ID -file FILE.xlsx - enroll the students listed in the first sheet")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant every role.")
	addUserTeacher := addUserCmd.Bool("teacher", false, "Grant the teacher role.")
	addUserStudent := addUserCmd.String("student", "", "Link the account to this roster student and grant the student role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	importCmd := flag.NewFlagSet("importstudents", flag.ContinueOnError)
	importClass := importCmd.String("class", "", "The class the students are enrolled in.")
	importFile := importCmd.String("file", "", "An .xlsx file with one student name per row in column A, after a header row.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" && *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, newAccount{
			name:      *addUserName,
			uname:     *addUserUname,
			email:     *addUserEmail,
			pwd:       pwd,
			isAdmin:   *addUserAdmin,
			isTeacher: *addUserTeacher,
			studentID: *addUserStudent,
		})
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *resetPasswordUname, pwd)
	case "importstudents":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importClass == "" || *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		f, err := os.Open(*importFile)
		if err != nil {
			return err
		}
		defer f.Close()
		n, err := cli.importStudents(ctx, *importClass, f)
		fmt.Printf("%d student(s) imported\n", n)
		return err
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
