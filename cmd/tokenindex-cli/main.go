// tokenindex-cli is a command-line client for a tokenindexd node.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tokenetic/tokenindex/internal/rpc"
	"github.com/tokenetic/tokenindex/internal/rpcclient"
	"github.com/tokenetic/tokenindex/pkg/script"
	"github.com/tokenetic/tokenindex/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	rpcURL := "http://127.0.0.1:8475"

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	client := rpcclient.New(rpcURL)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(client)
	case "balance":
		cmdBalance(client, cmdArgs)
	case "balances":
		cmdBalances(client)
	case "history":
		cmdHistory(client, cmdArgs)
	case "utxos":
		cmdUtxos(client, cmdArgs)
	case "admit":
		cmdAdmit(client, cmdArgs)
	case "spend":
		cmdSpend(client, cmdArgs)
	case "evict":
		cmdEvict(client, cmdArgs)
	case "mintscript":
		cmdMintScript(cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`tokenindex-cli - client for a tokenindexd node

Usage:
  tokenindex-cli [--rpc=<url>] <command> [args]

Global Options:
  --rpc        Node RPC endpoint (default: http://127.0.0.1:8475)

Commands:
  status                          Node status and index counters
  balance <token_id>              One token's unspent balance
  balances                        All token balances
  history <token_id> [limit]      A token's records, newest first
  utxos <token_id>                A token's spendable records
  admit <txid> <script:value>...  Submit outputs for admission
  spend <txid> <vout>             Mark an output spent
  evict <txid> <vout>             Remove an output permanently
  mintscript [options]            Build a mint locking script locally

Examples:
  tokenindex-cli status
  tokenindex-cli balance 4f8b...
  tokenindex-cli admit 9ab3... 02aa...75:546
  tokenindex-cli spend 9ab3... 0
  tokenindex-cli mintscript --funding-txid=9ab3... --amount=1000000 \
      --owner=02fe... --name=Demo --symbol=DMO
`)
}

// printJSON renders an RPC result for the terminal.
func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(data))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func cmdStatus(client *rpcclient.Client) {
	status, err := client.GetStatus()
	if err != nil {
		fatal(err)
	}
	printJSON(status)
}

func cmdBalance(client *rpcclient.Client, args []string) {
	if len(args) != 1 {
		fatal(fmt.Errorf("usage: balance <token_id>"))
	}
	bal, err := client.GetBalance(args[0])
	if err != nil {
		fatal(err)
	}
	printJSON(bal)
}

func cmdBalances(client *rpcclient.Client) {
	bals, err := client.GetAllBalances()
	if err != nil {
		fatal(err)
	}
	printJSON(bals)
}

func cmdHistory(client *rpcclient.Client, args []string) {
	if len(args) < 1 || len(args) > 2 {
		fatal(fmt.Errorf("usage: history <token_id> [limit]"))
	}
	limit := 0
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fatal(fmt.Errorf("invalid limit %q", args[1]))
		}
		limit = n
	}
	hist, err := client.GetHistory(args[0], limit)
	if err != nil {
		fatal(err)
	}
	printJSON(hist)
}

func cmdUtxos(client *rpcclient.Client, args []string) {
	if len(args) != 1 {
		fatal(fmt.Errorf("usage: utxos <token_id>"))
	}
	utxos, err := client.GetUtxos(args[0])
	if err != nil {
		fatal(err)
	}
	printJSON(utxos)
}

// cmdAdmit submits outputs as <locking_script_hex>:<value> pairs.
func cmdAdmit(client *rpcclient.Client, args []string) {
	if len(args) < 2 {
		fatal(fmt.Errorf("usage: admit <txid> <script:value>..."))
	}
	txID := args[0]

	var outputs []rpc.OutputParam
	for _, arg := range args[1:] {
		i := strings.LastIndex(arg, ":")
		if i < 0 {
			fatal(fmt.Errorf("output %q: want <script_hex>:<value>", arg))
		}
		value, err := strconv.ParseUint(arg[i+1:], 10, 64)
		if err != nil {
			fatal(fmt.Errorf("output %q: invalid value: %v", arg, err))
		}
		outputs = append(outputs, rpc.OutputParam{LockingScript: arg[:i], Value: value})
	}

	res, err := client.AdmitOutputs(txID, outputs)
	if err != nil {
		fatal(err)
	}
	printJSON(res)
}

func cmdSpend(client *rpcclient.Client, args []string) {
	txID, vout := parseOutpointArgs(args, "spend")
	if err := client.MarkSpent(txID, vout); err != nil {
		fatal(err)
	}
	fmt.Println("ok")
}

func cmdEvict(client *rpcclient.Client, args []string) {
	txID, vout := parseOutpointArgs(args, "evict")
	if err := client.Evict(txID, vout); err != nil {
		fatal(err)
	}
	fmt.Println("ok")
}

func parseOutpointArgs(args []string, cmd string) (string, uint32) {
	if len(args) != 2 {
		fatal(fmt.Errorf("usage: %s <txid> <vout>", cmd))
	}
	vout, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		fatal(fmt.Errorf("invalid vout %q", args[1]))
	}
	return args[0], uint32(vout)
}

// cmdMintScript builds a mint locking script offline and prints the
// derived token id alongside the script hex.
func cmdMintScript(args []string) {
	fs := flag.NewFlagSet("mintscript", flag.ExitOnError)
	fundingTxID := fs.String("funding-txid", "", "Funding outpoint txid (hex)")
	fundingIndex := fs.Uint("funding-index", 0, "Funding outpoint index")
	amount := fs.Uint64("amount", 0, "Token amount to mint")
	ownerHex := fs.String("owner", "", "Owner public key (33-byte hex)")
	name := fs.String("name", "", "Token name")
	symbol := fs.String("symbol", "", "Token symbol")
	decimals := fs.Uint("decimals", 0, "Token decimals")
	layout := fs.String("layout", "b", "Script layout: a or b")
	fs.Parse(args)

	txID, err := types.HexToHash(*fundingTxID)
	if err != nil {
		fatal(fmt.Errorf("invalid funding txid: %v", err))
	}
	owner, err := hex.DecodeString(*ownerHex)
	if err != nil || len(owner) != types.PubKeySize {
		fatal(fmt.Errorf("owner must be %d-byte hex", types.PubKeySize))
	}
	if *amount == 0 {
		fatal(fmt.Errorf("amount must be positive"))
	}

	var metadata []byte
	if *name != "" || *symbol != "" {
		metadata, err = json.Marshal(map[string]interface{}{
			"name":     *name,
			"symbol":   *symbol,
			"decimals": *decimals,
		})
		if err != nil {
			fatal(err)
		}
	}

	var (
		tokenID       types.TokenID
		lockingScript []byte
	)
	switch strings.ToLower(*layout) {
	case "a":
		tokenID = script.DeriveTokenID(txID, uint32(*fundingIndex))
		lockingScript = script.EncodeFields(script.BuildFields(tokenID, *amount, owner, metadata))
	case "b":
		tokenID, lockingScript = script.BuildMint(txID, uint32(*fundingIndex), *amount, owner, metadata)
	default:
		fatal(fmt.Errorf("layout must be a or b"))
	}

	printJSON(map[string]string{
		"token_id":       tokenID.String(),
		"locking_script": hex.EncodeToString(lockingScript),
	})
}
