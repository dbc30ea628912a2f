package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/abourget/llerrgroup"
	"github.com/dustin/go-humanize"
	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
	"github.com/streamingfast/cli"
	"github.com/streamingfast/cli/sflags"
	"github.com/vczyh/rdbkeys/keys"
	"github.com/vczyh/rdbkeys/trie"
	"go.uber.org/zap"
)

const defaultTopN = 10

func init() {
	queryCmd.Flags().String("delimiter", trie.DefaultDelimiter, "Separator between the segments of a key")
	compareCmd.Flags().String("delimiter", trie.DefaultDelimiter, "Separator between the segments of a key")
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(compareCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query <keys-file> [command...]",
	Short: "Count keys by prefix in a keys file",
	Long: cli.Dedent(`
		Indexes a keys file by prefix and answers a single command, or starts an
		interactive prompt when none is given.

		Commands:
	`) + "\n" + indent(queryHelp),
	Example: cli.Dedent(`
		rdbkeys query dump.keys count user:
		rdbkeys query dump.keys top session 5
		rdbkeys query s3://reports/keys/prod.keys
	`),
	Args:         cobra.MinimumNArgs(1),
	RunE:         queryE,
	SilenceUsage: true,
}

var compareCmd = &cobra.Command{
	Use:   "compare <keys-file-a> <keys-file-b> [command...]",
	Short: "Compare key prefixes of two keys files side by side",
	Long: cli.Dedent(`
		Indexes two keys files, usually extracted from two dumps of the same
		database, and answers every command for both of them. Takes the same
		commands as query.

		Commands:
	`) + "\n" + indent(queryHelp),
	Example: cli.Dedent(`
		rdbkeys compare before.keys after.keys count user:
		rdbkeys compare before.keys after.keys top session 5
	`),
	Args:         cobra.MinimumNArgs(2),
	RunE:         compareE,
	SilenceUsage: true,
}

func queryE(cmd *cobra.Command, args []string) error {
	index, err := loadIndex(cmd.Context(), args[0], sflags.MustGetString(cmd, "delimiter"))
	if err != nil {
		return err
	}

	q := &querier{databases: []database{{index: index}}, out: cmd.OutOrStdout()}
	return q.start(cmd.InOrStdin(), args[1:])
}

func compareE(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	delimiter := sflags.MustGetString(cmd, "delimiter")

	databases := []database{{name: "first database"}, {name: "second database"}}
	eg := llerrgroup.New(2)
	for i := range databases {
		if eg.Stop() {
			break
		}
		db, path := &databases[i], args[i]
		eg.Go(func() (err error) {
			db.index, err = loadIndex(ctx, path, delimiter)
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	q := &querier{databases: databases, out: cmd.OutOrStdout()}
	return q.start(cmd.InOrStdin(), args[2:])
}

func loadIndex(ctx context.Context, path, delimiter string) (*trie.Trie, error) {
	if strings.HasPrefix(path, "redis://") {
		return nil, errors.New("query reads a keys file, extract one with --rdb redis://... --keys <file> first")
	}

	src, err := keys.OpenSource(ctx, path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	index := trie.New(delimiter)
	n, err := index.Load(src)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	zlog.Info("keys file indexed", zap.String("path", path), zap.String("keys", humanize.Comma(int64(n))))
	return index, nil
}

var errUnknownCommand = errors.New("unknown command, try help")

type database struct {
	// Empty when a single keys file is queried.
	name  string
	index *trie.Trie
}

type querier struct {
	databases []database
	out       io.Writer
}

func (q *querier) comparing() bool {
	return len(q.databases) > 1
}

// start answers command when one is given, otherwise runs the prompt on in.
func (q *querier) start(in io.Reader, command []string) error {
	if len(command) > 0 {
		_, err := q.run(command)
		return err
	}
	return q.repl(in)
}

// run executes one command and reports whether the prompt should stop.
func (q *querier) run(args []string) (exit bool, err error) {
	if len(args) == 0 {
		return false, nil
	}

	switch strings.ToLower(args[0]) {
	case "count":
		if len(args) > 2 {
			return false, errors.New("usage: count [prefix]")
		}
		q.count(optionalArg(args, 1))
	case "top":
		return false, q.top(args[1:])
	case "children":
		if len(args) > 2 {
			return false, errors.New("usage: children [prefix]")
		}
		q.children(optionalArg(args, 1))
	case "help":
		fmt.Fprintln(q.out, queryHelp)
	case "exit", "quit":
		return true, nil
	default:
		return false, fmt.Errorf("%q: %w", args[0], errUnknownCommand)
	}
	return false, nil
}

func (q *querier) count(prefix string) {
	if !q.comparing() {
		fmt.Fprintf(q.out, "%s\n", humanize.Comma(int64(q.databases[0].index.CountForPrefix(prefix))))
		return
	}

	parts := make([]string, 0, len(q.databases))
	for _, db := range q.databases {
		parts = append(parts, fmt.Sprintf("in %s: %s", db.name, humanize.Comma(int64(db.index.CountForPrefix(prefix)))))
	}
	fmt.Fprintf(q.out, "%s %s\n", prefixLabel(prefix), strings.Join(parts, ", "))
}

func (q *querier) children(prefix string) {
	for _, db := range q.databases {
		if q.comparing() {
			fmt.Fprintf(q.out, "in %s:\n", db.name)
		}
		for _, child := range db.index.Children(prefix) {
			fmt.Fprintln(q.out, child)
		}
	}
}

func (q *querier) top(args []string) error {
	prefix := optionalArg(args, 0)
	n := defaultTopN
	explicit := false
	switch len(args) {
	case 0, 1:
	case 2:
		v, err := strconv.Atoi(args[1])
		if err != nil || v < 0 {
			return fmt.Errorf("invalid count %q", args[1])
		}
		n, explicit = v, true
	default:
		return errors.New("usage: top [prefix] [n]")
	}

	for _, db := range q.databases {
		res, err := db.index.TopChildren(prefix, n)
		if err != nil {
			if q.comparing() && errors.Is(err, trie.ErrPrefixNotFound) {
				fmt.Fprintf(q.out, "in %s: no keys found for %s\n", db.name, prefixLabel(prefix))
				continue
			}
			return err
		}
		q.printTop(db, res, n, explicit)
	}
	return nil
}

func (q *querier) printTop(db database, res *trie.TopResult, n int, explicit bool) {
	label := prefixLabel(res.Prefix)
	if q.comparing() {
		label = fmt.Sprintf("in %s: %s", db.name, label)
	}
	found := len(res.Top)

	fmt.Fprintf(q.out, "%s total keys: %s\n", label, humanize.Comma(int64(res.TotalKeys)))
	fmt.Fprintf(q.out, "%s total children: %s\n", label, humanize.Comma(int64(res.TotalChildren)))
	if explicit && found < n {
		fmt.Fprintf(q.out, "warning: only found %d, fewer than the %d requested\n", found, n)
	}
	for _, child := range res.Top {
		fmt.Fprintf(q.out, "%s %s\n", child.Prefix, humanize.Comma(int64(child.Count)))
	}
	if others := res.TotalChildren - found; others > 0 {
		fmt.Fprintf(q.out, "... and %s others\n", humanize.Comma(int64(others)))
	}
}

// repl reads commands line by line until exit or end of input. Command
// errors are printed and the prompt continues.
func (q *querier) repl(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(q.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(q.out)
			return scanner.Err()
		}

		args, err := shellquote.Split(scanner.Text())
		if err != nil {
			fmt.Fprintf(q.out, "error: %s\n", err)
			continue
		}
		exit, err := q.run(args)
		if err != nil {
			fmt.Fprintf(q.out, "error: %s\n", err)
			continue
		}
		if exit {
			return nil
		}
	}
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}

func prefixLabel(prefix string) string {
	if prefix == "" {
		return "*"
	}
	return prefix
}

var queryHelp = cli.Dedent(`
	count [prefix]        number of keys under prefix
	top [prefix] [n]      the n children of prefix holding the most keys
	children [prefix]     direct children of prefix
	help                  this list
	exit                  leave the prompt
`)
