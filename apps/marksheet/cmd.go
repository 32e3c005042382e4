package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/marksheet"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
}

type commandLine struct {
	backend      marksheet.Backend
	auth         authenticator
	logger       core.Logger
	out          io.Writer
	workers      int
	defaultTotal float64
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username USERNAME|EMAIL - print an API token (password is prompted)")
	fmt.Fprintln(cli.out, "  show -class ID [-subject ID -exam TYPE] - print the marksheet")
	fmt.Fprintln(cli.out, "  enter -class ID -subject ID -exam TYPE [-total N] STUDENT_ID=OBTAINED[:REMARKS]... - save marks")
	fmt.Fprintln(cli.out, "  export -class ID -subject ID -exam TYPE -out FILE.xlsx - write the marksheet to a workbook")
	fmt.Fprintln(cli.out, "  results - print your own results")
}

// selectionFlags registers the flags shared by the sheet commands.
func selectionFlags(fs *flag.FlagSet) func() marksheet.Selection {
	class := fs.String("class", "", "Class ID.")
	subject := fs.String("subject", "", "Subject ID.")
	exam := fs.String("exam", "", "Exam type: quiz, midterm, final, assignment or project.")
	return func() marksheet.Selection {
		return marksheet.Selection{
			ClassID:   strings.TrimSpace(*class),
			SubjectID: strings.TrimSpace(*subject),
			ExamType:  mark.ExamType(strings.ToLower(strings.TrimSpace(*exam))),
		}
	}
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginUname := loginCmd.String("username", "", "Your username or email. The password will be prompted next.")

	showCmd := flag.NewFlagSet("show", flag.ContinueOnError)
	showSel := selectionFlags(showCmd)

	enterCmd := flag.NewFlagSet("enter", flag.ContinueOnError)
	enterSel := selectionFlags(enterCmd)
	enterTotal := enterCmd.Float64("total", 0, "Total marks of the exam. Defaults to the recorded total.")

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportOut := exportCmd.String("out", "", "Destination .xlsx file.")
	exportSelection := selectionFlags(exportCmd)

	for _, fs := range []*flag.FlagSet{loginCmd, showCmd, enterCmd, exportCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginUname == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		token, err := cli.auth.Login(ctx, *loginUname, string(pwd))
		if err != nil {
			return err
		}
		fmt.Fprintln(cli.out, token)
		return nil
	case "show":
		if err := showCmd.Parse(args[2:]); err != nil {
			return err
		}
		sel := showSel()
		if sel.ClassID == "" {
			showCmd.Usage()
			return errHelp
		}
		sess, err := cli.load(ctx, sel)
		if err != nil {
			return err
		}
		printSheet(cli.out, sess.Sheet())
		return nil
	case "enter":
		if err := enterCmd.Parse(args[2:]); err != nil {
			return err
		}
		sel := enterSel()
		if !sel.Complete() || enterCmd.NArg() == 0 {
			enterCmd.Usage()
			return errHelp
		}
		entries, err := parseEntries(enterCmd.Args())
		if err != nil {
			return err
		}
		return cli.enter(ctx, sel, *enterTotal, entries)
	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		sel := exportSelection()
		if !sel.Complete() || *exportOut == "" {
			exportCmd.Usage()
			return errHelp
		}
		sess, err := cli.load(ctx, sel)
		if err != nil {
			return err
		}
		if err := exportSheet(*exportOut, sess.Sheet()); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "marksheet written to %s\n", *exportOut)
		return nil
	case "results":
		rep, err := marksheet.Results(ctx, cli.backend)
		if err != nil {
			return err
		}
		printReport(cli.out, rep)
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) load(ctx context.Context, sel marksheet.Selection) (*marksheet.Session, error) {
	sess := marksheet.NewSession(cli.backend, marksheet.Options{
		Logger:       cli.logger,
		Workers:      cli.workers,
		DefaultTotal: cli.defaultTotal,
	})
	if err := sess.Load(ctx, sel); err != nil {
		return nil, err
	}
	return sess, nil
}

type entry struct {
	studentID string
	obtained  string
	remarks   string
	hasRemark bool
}

// parseEntries reads STUDENT_ID=OBTAINED[:REMARKS] arguments.
func parseEntries(args []string) ([]entry, error) {
	entries := make([]entry, 0, len(args))
	for _, arg := range args {
		id, val, ok := strings.Cut(arg, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, errors.Errorf("invalid entry %q: want STUDENT_ID=OBTAINED[:REMARKS]", arg)
		}
		e := entry{studentID: id}
		e.obtained, e.remarks, e.hasRemark = strings.Cut(val, ":")
		entries = append(entries, e)
	}
	return entries, nil
}

func (cli *commandLine) enter(ctx context.Context, sel marksheet.Selection, total float64, entries []entry) error {
	sess, err := cli.load(ctx, sel)
	if err != nil {
		return err
	}
	if total != 0 {
		if err := sess.SetTotalMarks(total); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if err := sess.SetField(e.studentID, marksheet.FieldObtained, e.obtained); err != nil {
			return err
		}
		if e.hasRemark {
			if err := sess.SetField(e.studentID, marksheet.FieldRemarks, e.remarks); err != nil {
				return err
			}
		}
	}

	res, err := sess.SubmitAll(ctx)
	fmt.Fprintf(cli.out, "%d saved, %d skipped, %d failed\n", len(res.Saved), len(res.Skipped), len(res.Failed))
	for _, f := range res.Failed {
		fmt.Fprintf(cli.out, "  %s: %v\n", f.StudentID, f.Err)
	}
	return err
}

func formatPct(pct float64, ok bool) string {
	if !ok {
		return "-"
	}
	return strconv.FormatFloat(pct, 'f', 1, 64) + "%"
}
