package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/message"

	"github.com/trezcool/rapor/core"
	"github.com/trezcool/rapor/core/grading"
	"github.com/trezcool/rapor/core/report"
	"github.com/trezcool/rapor/core/school"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db       *sql.DB
	dialect  string
	svc      *school.Service
	emailSvc core.EmailService
	validate *validator.Validate
	printer  *message.Printer
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                                   - run database migrations")
	fmt.Fprintln(cli.out, "  import-students -class NAME -file PATH                   - create the students of an xlsx file")
	fmt.Fprintln(cli.out, "  recap-grades -class NAME -subject NAME [-mode MODE]      - compute a grade recap")
	fmt.Fprintln(cli.out, "  recap-attendance -class NAME -from DATE -to DATE         - compute an attendance recap")
	fmt.Fprintln(cli.out, "Recap commands also accept -out PATH (xlsx export) and -email ADDR[,ADDR...].")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		return cli.migrate(args[2:])
	case "import-students":
		return cli.importStudents(args[2:])
	case "recap-grades":
		return cli.recapGrades(args[2:])
	case "recap-attendance":
		return cli.recapAttendance(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

// parse returns errHelp when a required flag is missing.
func parse(fs *flag.FlagSet, args []string, required ...*string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	for _, val := range required {
		if strings.TrimSpace(*val) == "" {
			fs.Usage()
			return errHelp
		}
	}
	return nil
}

func (cli *commandLine) importStudents(args []string) error {
	cmd := cli.newFlagSet("import-students")
	className := cmd.String("class", "", "The class name.")
	path := cmd.String("file", "", "The xlsx file; first sheet, columns NIS and Nama after a header row.")
	if err := parse(cmd, args, className, path); err != nil {
		return err
	}

	ctx := context.Background()
	class, err := cli.svc.FindClassByName(ctx, *className)
	if err != nil {
		return err
	}

	file, err := os.Open(*path)
	if err != nil {
		return errors.Wrap(err, "opening students file")
	}
	defer file.Close()

	data, err := report.ReadStudents(file, cli.validate)
	if err != nil {
		return err
	}
	students, err := cli.svc.ImportStudents(ctx, class.ID, data)
	if err != nil {
		return err
	}
	cli.printer.Fprintf(cli.out, "%d siswa ditambahkan ke kelas %s\n", len(students), class.Name)
	return nil
}

type recapOutput struct {
	out   string
	email string
}

func (cli *commandLine) outputFlags(fs *flag.FlagSet) *recapOutput {
	o := new(recapOutput)
	fs.StringVar(&o.out, "out", "", "Write the recap workbook to this path.")
	fs.StringVar(&o.email, "email", "", "Comma separated addresses to mail the recap to.")
	return o
}

func (o *recapOutput) recipients() ([]mail.Address, error) {
	if strings.TrimSpace(o.email) == "" {
		return nil, nil
	}
	addrs, err := mail.ParseAddressList(o.email)
	if err != nil {
		return nil, core.NewFieldValidationError("email", err.Error())
	}
	to := make([]mail.Address, 0, len(addrs))
	for _, a := range addrs {
		to = append(to, *a)
	}
	return to, nil
}

func (cli *commandLine) findSubject(ctx context.Context, name string) (school.Subject, error) {
	subjects, err := cli.svc.QuerySubjects(ctx, nil)
	if err != nil {
		return school.Subject{}, err
	}
	name = core.CleanString(name)
	for _, s := range subjects {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return school.Subject{}, errors.Wrapf(school.ErrNotFound, "subject %q", name)
}

func (cli *commandLine) recapGrades(args []string) error {
	cmd := cli.newFlagSet("recap-grades")
	className := cmd.String("class", "", "The class name.")
	subjectName := cmd.String("subject", "", "The subject name.")
	modeStr := cmd.String("mode", "", "zero_fill or renormalize; defaults to the configured mode.")
	output := cli.outputFlags(cmd)
	if err := parse(cmd, args, className, subjectName); err != nil {
		return err
	}

	var mode grading.Mode
	if *modeStr != "" {
		var err error
		if mode, err = grading.ParseMode(*modeStr); err != nil {
			return core.NewFieldValidationError("mode", err.Error())
		}
	}
	to, err := output.recipients()
	if err != nil {
		return err
	}

	ctx := context.Background()
	class, err := cli.svc.FindClassByName(ctx, *className)
	if err != nil {
		return err
	}
	subject, err := cli.findSubject(ctx, *subjectName)
	if err != nil {
		return err
	}
	recap, err := cli.svc.GradeRecap(ctx, class.ID, subject.ID, mode)
	if err != nil {
		return err
	}

	cli.printGrades(recap)

	if output.out != "" {
		f, err := report.GradeWorkbook(recap)
		if err != nil {
			return err
		}
		if err = cli.saveWorkbook(f, output.out); err != nil {
			return err
		}
	}
	if len(to) > 0 {
		msg, err := report.GradeMail(recap, to...)
		if err != nil {
			return err
		}
		cli.emailSvc.SendMessages(msg)
		cli.emailSvc.Wait()
		cli.printer.Fprintf(cli.out, "Rekap dikirim ke %d penerima\n", len(to))
	}
	return nil
}

func (cli *commandLine) printGrades(recap school.GradeRecap) {
	p := cli.printer
	p.Fprintf(cli.out, "Rekap nilai %s - %s (%s)\n", recap.Class.Name, recap.Subject.Name, recap.Mode)
	if !recap.WeightCheck.Balanced {
		p.Fprintf(cli.out, "Peringatan: total bobot %d%%\n", recap.WeightCheck.Total)
	}
	if len(recap.WeightCheck.Unweighted) > 0 {
		p.Fprintf(cli.out, "Peringatan: kategori tanpa bobot: %s\n", strings.Join(recap.WeightCheck.Unweighted, ", "))
	}
	for i, r := range recap.Results {
		p.Fprintf(cli.out, "%3d. %-30s %6.1f %s\n", i+1, r.Name, r.FinalScore, r.Letter)
	}
	if recap.Summary.NoData {
		p.Fprintln(cli.out, "Tidak ada data")
		return
	}
	p.Fprintf(cli.out, "Rata-rata %.1f, tertinggi %.1f, terendah %.1f\n",
		recap.Summary.Average, recap.Summary.Highest, recap.Summary.Lowest)
}

func (cli *commandLine) recapAttendance(args []string) error {
	cmd := cli.newFlagSet("recap-attendance")
	className := cmd.String("class", "", "The class name.")
	fromStr := cmd.String("from", "", "First day, YYYY-MM-DD.")
	toStr := cmd.String("to", "", "Last day, YYYY-MM-DD.")
	output := cli.outputFlags(cmd)
	if err := parse(cmd, args, className, fromStr, toStr); err != nil {
		return err
	}

	from, err := core.ParseDate(*fromStr)
	if err != nil {
		return core.NewFieldValidationError("from", "date must be in the YYYY-MM-DD format")
	}
	toDate, err := core.ParseDate(*toStr)
	if err != nil {
		return core.NewFieldValidationError("to", "date must be in the YYYY-MM-DD format")
	}
	to, err := output.recipients()
	if err != nil {
		return err
	}

	ctx := context.Background()
	class, err := cli.svc.FindClassByName(ctx, *className)
	if err != nil {
		return err
	}
	recap, err := cli.svc.AttendanceRecap(ctx, class.ID, from, toDate)
	if err != nil {
		return err
	}

	cli.printAttendance(recap)

	if output.out != "" {
		f, err := report.AttendanceWorkbook(recap)
		if err != nil {
			return err
		}
		if err = cli.saveWorkbook(f, output.out); err != nil {
			return err
		}
	}
	if len(to) > 0 {
		msg, err := report.AttendanceMail(recap, to...)
		if err != nil {
			return err
		}
		cli.emailSvc.SendMessages(msg)
		cli.emailSvc.Wait()
		cli.printer.Fprintf(cli.out, "Rekap dikirim ke %d penerima\n", len(to))
	}
	return nil
}

func (cli *commandLine) printAttendance(recap school.AttendanceRecap) {
	p := cli.printer
	p.Fprintf(cli.out, "Rekap kehadiran %s (%s s/d %s)\n", recap.Class.Name, recap.From, recap.To)
	p.Fprintf(cli.out, "Hari tercatat: %d dari %d hari\n", recap.Summary.TotalDays, recap.Summary.RangeDays)
	for i, r := range recap.Rows {
		p.Fprintf(cli.out, "%3d. %-30s %3d%% %s\n", i+1, r.Name, r.Percentage, r.Category)
	}
	p.Fprintf(cli.out, "Rata-rata kehadiran %.1f%%\n", recap.Summary.AverageAttendance)
}

func (cli *commandLine) saveWorkbook(f *excelize.File, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating workbook file")
	}
	if err = report.Write(file, f); err != nil {
		_ = file.Close()
		return err
	}
	if err = file.Close(); err != nil {
		return errors.Wrap(err, "closing workbook file")
	}
	cli.printer.Fprintf(cli.out, "Disimpan ke %s\n", path)
	return nil
}
