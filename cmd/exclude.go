package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/subcommands"
)

// excludeCmd holds the flags for the 'exclude' subcommand.
type excludeCmd struct {
	book   string
	reason string
}

func (*excludeCmd) Name() string     { return "exclude" }
func (*excludeCmd) Synopsis() string { return "mark statement rows as non-transactional" }
func (*excludeCmd) Usage() string {
	return `llc exclude [-b <book>] [-reason <text>] <row>...

  Marks rows as noise (headers, disclaimers, subtotals) so coverage checks
  stop reporting them. Rows may be single numbers or ranges like 12-18.
  Excluding an already excluded row is a no-op.
`
}

func (c *excludeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.book, "b", "", "Book to edit. Defaults to the only book if one exists.")
	f.StringVar(&c.reason, "reason", "", "Why the rows are excluded")
}

func (c *excludeCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: no row numbers given")
		return subcommands.ExitUsageError
	}
	nums, err := parseRowArgs(f.Args())
	if err != nil {
		fail(err)
		return subcommands.ExitUsageError
	}

	s, err := store()
	if err != nil {
		return fail(err)
	}
	book, err := s.Find(c.book)
	if err != nil {
		return fail(err)
	}
	for _, num := range nums {
		if _, ok := book.Row(num); !ok {
			fmt.Fprintf(os.Stderr, "Error: row %d does not exist in book %q\n", num, book.Name())
			return subcommands.ExitFailure
		}
		if len(book.Coverage().Owners(num)) > 0 {
			fmt.Fprintf(os.Stderr, "Error: row %d is owned by a transaction, delete it first\n", num)
			return subcommands.ExitFailure
		}
	}

	book.Coverage().Exclude(nums, c.reason)
	if err := s.Save(book); err != nil {
		return fail(err)
	}
	fmt.Printf("Excluded %d rows from book %q\n", len(nums), book.Name())
	return subcommands.ExitSuccess
}

// parseRowArgs expands arguments like "7" and "12-18" into row numbers.
func parseRowArgs(args []string) ([]int, error) {
	var nums []int
	for _, arg := range args {
		lo, hi, found := strings.Cut(arg, "-")
		if !found {
			n, err := strconv.Atoi(arg)
			if err != nil {
				return nil, fmt.Errorf("invalid row number %q", arg)
			}
			nums = append(nums, n)
			continue
		}
		from, err1 := strconv.Atoi(lo)
		to, err2 := strconv.Atoi(hi)
		if err1 != nil || err2 != nil || from > to {
			return nil, fmt.Errorf("invalid row range %q", arg)
		}
		for n := from; n <= to; n++ {
			nums = append(nums, n)
		}
	}
	return nums, nil
}
