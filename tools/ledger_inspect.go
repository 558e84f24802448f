package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

type diskUser struct {
	ID          string          `json:"id"`
	FullName    string          `json:"full_name"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
}

type diskTransaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt string          `json:"created_at"`
}

func main() {
	dbPath := flag.String("db", "/tmp/creditline/badger", "Path to badger DB")
	prefix := flag.String("prefix", "user:", "Prefix to scan (user: or tx:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Entity ID", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	users := 0
	charges := 0
	total := decimal.Zero

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			rawKey := string(item.Key())

			err := item.Value(func(v []byte) error {
				switch {
				case strings.HasPrefix(rawKey, "user:"):
					var u diskUser
					if err := json.Unmarshal(v, &u); err != nil {
						fmt.Printf("Error unmarshaling key %s: %v\n", rawKey, err)
						return nil
					}
					users++
					table.Append([]string{rawKey, "USER", shortID(u.ID),
						fmt.Sprintf("%s (limit %s)", u.FullName, u.CreditLimit.String())})

				case strings.HasPrefix(rawKey, "tx:"):
					var tx diskTransaction
					if err := json.Unmarshal(v, &tx); err != nil {
						fmt.Printf("Error unmarshaling key %s: %v\n", rawKey, err)
						return nil
					}
					charges++
					total = total.Add(tx.Amount)
					table.Append([]string{rawKey, "TX", shortID(tx.ID),
						fmt.Sprintf("user %s charged %s at %s", shortID(tx.UserID), tx.Amount.String(), tx.CreatedAt)})

				default:
					table.Append([]string{rawKey, "RAW", "--------", fmt.Sprintf("%d bytes", len(v))})
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	color.Green.Printf("\n%d user(s), %d charge(s)", users, charges)
	if charges > 0 {
		color.Cyan.Printf(", %s committed in total", total.String())
	}
	fmt.Println()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	return badger.Open(opts)
}
