package main

import (
	"fmt"
	"os"

	"github.com/nessita/cgem/cmd/accounts"
	"github.com/nessita/cgem/cmd/add"
	"github.com/nessita/cgem/cmd/balance"
	deletecmd "github.com/nessita/cgem/cmd/delete"
	"github.com/nessita/cgem/cmd/export"
	"github.com/nessita/cgem/cmd/history"
	importcmd "github.com/nessita/cgem/cmd/import"
	"github.com/nessita/cgem/cmd/list"
	"github.com/nessita/cgem/cmd/merge"
	"github.com/nessita/cgem/cmd/root"
	"github.com/nessita/cgem/cmd/transfer"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(importcmd.Cmd)
	root.Cmd.AddCommand(add.Cmd)
	root.Cmd.AddCommand(deletecmd.Cmd)
	root.Cmd.AddCommand(balance.Cmd)
	root.Cmd.AddCommand(merge.Cmd)
	root.Cmd.AddCommand(list.Cmd)
	root.Cmd.AddCommand(export.Cmd)
	root.Cmd.AddCommand(transfer.Cmd)
	root.Cmd.AddCommand(history.Cmd)
	root.Cmd.AddCommand(accounts.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
