// Command inspect dumps the local message cache as a table, for debugging
// warm-start behavior without the app running.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

type cachedRow struct {
	ID           string  `json:"id"`
	Conversation string  `json:"conversation_id"`
	SenderID     string  `json:"sender_id"`
	Text         *string `json:"text"`
	SentAt       int64   `json:"sent_at"`
	IsRead       bool    `json:"is_read"`
	IsSentByMe   bool    `json:"is_sent_by_me"`
}

func main() {
	dbPath := flag.String("db", "", "Path to the badger message cache")
	prefix := flag.String("prefix", "msg:", "Prefix to scan")
	flag.Parse()
	if *dbPath == "" {
		log.Fatal("missing -db path")
	}

	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal("Error while opening cache: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Conversation", "Sender", "Sent at", "Read", "Mine", "Text"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				var row cachedRow
				if err := json.Unmarshal(v, &row); err != nil {
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}
				text := ""
				if row.Text != nil {
					text = *row.Text
				}
				table.Append([]string{
					string(item.Key()),
					row.Conversation,
					row.SenderID,
					time.Unix(0, row.SentAt).UTC().Format(time.RFC822),
					fmt.Sprint(row.IsRead),
					fmt.Sprint(row.IsSentByMe),
					text,
				})
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
}
