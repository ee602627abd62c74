package shell

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/term"

	"github.com/kamalshkeir/kadmin/core/admin/models"
	"github.com/kamalshkeir/kadmin/core/orm"
	"github.com/kamalshkeir/kadmin/core/schema"
	"github.com/kamalshkeir/kadmin/core/utils/logger"
)

const helpS string = `Commands :
[tables, columns, migrate, createsuperuser, createuser, getall, get, delete, schema, q/quit/exit, help/commands]
  'tables':
	  list all tables in database

  'columns':
	  list all columns of a table

  'migrate':
	  create the users table

  'createsuperuser':
	  create a admin user

  'createuser':
	  create a regular user

  'getall':
	  get all rows given a table name

  'get':
	  get single row where field equal_to

  'delete':
	  delete rows where field equal_to

  'schema':
	  write the json schema of the database to a file
`

const commandsS string = "Commands :  [tables, columns, migrate, createsuperuser, createuser, getall, get, delete, schema, q/quit/exit, help/commands]"

var ErrEmptyInput = errors.New("empty input")

// Shell is the admin console, reading commands from In and printing to Out
type Shell struct {
	In  io.Reader
	Out io.Writer
	// DB is the database used, the default one if empty
	DB string

	reader *bufio.Reader
}

func New(in io.Reader, out io.Writer) *Shell {
	return &Shell{In: in, Out: out, reader: bufio.NewReader(in)}
}

// InitShell run the command given in os.Args, return true if handled so main should stop
func InitShell() bool {
	return New(os.Stdin, os.Stdout).Run(os.Args[1:])
}

// Run execute args and return true if they were a shell command
func (s *Shell) Run(args []string) bool {
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "commands":
		s.println("Shell Usage: go run main.go shell")
		s.println(commandsS)
	case "help":
		s.println("Shell Usage: go run main.go shell")
		s.print(helpS)
	case "createsuperuser":
		logger.CheckError(s.createUser(true))
	case "schema":
		out := ""
		if len(args) > 1 {
			out = args[1]
		}
		logger.CheckError(s.writeSchema(out))
	case "shell":
		s.loop()
	default:
		return false
	}
	return true
}

func (s *Shell) loop() {
	s.println(commandsS)
	for {
		command, err := s.input("> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.println("shell shutting down")
			}
			return
		}
		switch command {
		case "":
		case "quit", "exit", "q", "q!":
			return
		case "help":
			s.print(helpS)
		case "commands":
			s.println(commandsS)
		case "tables":
			s.println(strings.Join(orm.GetAllTables(s.DB), "\n"))
		case "columns":
			err = s.columns()
		case "migrate":
			if err = orm.AutoMigrate[models.User]("users", s.DB); err == nil {
				s.println("users table migrated successfully")
			}
		case "createsuperuser":
			err = s.createUser(true)
		case "createuser":
			err = s.createUser(false)
		case "getall":
			err = s.getAll()
		case "get":
			err = s.getRow()
		case "delete":
			err = s.deleteRows()
		case "schema":
			var out string
			if out, err = s.input("Output file (stdout if empty): "); err == nil {
				err = s.writeSchema(out)
			}
		default:
			s.println("command not handled, use 'help' or 'commands' to list available commands")
		}
		logger.CheckError(err)
	}
}

func (s *Shell) println(a ...any) {
	fmt.Fprintln(s.Out, a...)
}

func (s *Shell) print(text string) {
	fmt.Fprint(s.Out, text)
}

func (s *Shell) input(prompt string) (string, error) {
	fmt.Fprint(s.Out, prompt)
	if s.reader == nil {
		s.reader = bufio.NewReader(s.In)
	}
	line, err := s.reader.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// hidden read a password without echo when In is a terminal
func (s *Shell) hidden(prompt string) (string, error) {
	if f, ok := s.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(s.Out, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(s.Out)
		if err != nil {
			return "", errors.Wrap(err, "read password")
		}
		return strings.TrimSpace(string(b)), nil
	}
	return s.input(prompt)
}

func (s *Shell) required(prompts ...string) ([]string, error) {
	res := make([]string, 0, len(prompts))
	for _, p := range prompts {
		v, err := s.input(p)
		if err != nil {
			return nil, err
		}
		if v == "" {
			return nil, errors.Wrapf(ErrEmptyInput, "%s", strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(p), ":")))
		}
		res = append(res, v)
	}
	return res, nil
}

func (s *Shell) createUser(isAdmin bool) error {
	email, err := s.input("Email: ")
	if err != nil {
		return err
	}
	password, err := s.hidden("Password: ")
	if err != nil {
		return err
	}
	if err := orm.CreateUser(email, password, isAdmin, s.DB); err != nil {
		return errors.Wrap(err, "unable to create user")
	}
	s.println("User " + email + " created successfully")
	return nil
}

func (s *Shell) columns() error {
	in, err := s.required("Table name: ")
	if err != nil {
		return err
	}
	cols := orm.GetAllColumnsTypes(in[0], s.DB)
	if len(cols) == 0 {
		return errors.Newf("table %q has no columns", in[0])
	}
	names := make([]string, 0, len(cols))
	for k := range cols {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, n := range names {
		s.println(n + "\t" + cols[n])
	}
	return nil
}

func (s *Shell) getAll() error {
	in, err := s.required("Table name: ")
	if err != nil {
		return err
	}
	if !orm.IsIdentifier(in[0]) {
		return errors.Newf("invalid table name %q", in[0])
	}
	data, err := orm.Table(in[0]).Database(s.DB).All()
	if err != nil {
		return err
	}
	return s.printJSON(data)
}

func (s *Shell) getRow() error {
	in, err := s.required("Table name: ", "Where field: ", "Equal to: ")
	if err != nil {
		return err
	}
	if !orm.IsIdentifier(in[0]) || !orm.IsIdentifier(in[1]) {
		return errors.New("invalid table or field name")
	}
	data, err := orm.Table(in[0]).Database(s.DB).Where(in[1]+" = ?", in[2]).One()
	if err != nil {
		return err
	}
	return s.printJSON(data)
}

func (s *Shell) deleteRows() error {
	in, err := s.required("Table name: ", "Where field: ", "Equal to: ")
	if err != nil {
		return err
	}
	if !orm.IsIdentifier(in[0]) || !orm.IsIdentifier(in[1]) {
		return errors.New("invalid table or field name")
	}
	n, err := orm.Table(in[0]).Database(s.DB).Where(in[1]+" = ?", in[2]).Delete()
	if err != nil {
		return err
	}
	s.println(fmt.Sprintf("%d rows deleted from %s", n, in[0]))
	return nil
}

func (s *Shell) writeSchema(out string) error {
	b, err := schema.Generate(context.Background(), s.DB)
	if err != nil {
		return err
	}
	if out == "" {
		_, err = s.Out.Write(append(b, '\n'))
		return err
	}
	if err := os.WriteFile(out, b, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", out)
	}
	s.println("schema written to " + out)
	return nil
}

func (s *Shell) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	s.println(string(b))
	return nil
}
