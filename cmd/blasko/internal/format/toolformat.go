package format

import (
	"encoding/json"
	"fmt"
	"strings"
)

// toolFormatter produces a label from parsed tool arguments.
type toolFormatter func(str func(string) string, args map[string]any) string

var toolFormatters = map[string]toolFormatter{
	// Chain data
	"getAccount": func(s func(string) string, _ map[string]any) string {
		return fmt.Sprintf("Looking up account %s", short(s("address")))
	},
	"getTransaction": func(s func(string) string, _ map[string]any) string {
		return fmt.Sprintf("Looking up transaction %s", short(s("txId")))
	},
	"getContract": func(s func(string) string, _ map[string]any) string {
		return fmt.Sprintf("Reading contract %s.%s", short(s("contractAddress")), s("contractName"))
	},
	"getNftGallery": func(s func(string) string, _ map[string]any) string {
		return fmt.Sprintf("Loading NFTs of %s", short(s("address")))
	},

	// Names
	"resolveBNS": func(s func(string) string, _ map[string]any) string {
		return fmt.Sprintf("Resolving %q", s("input"))
	},
	"reverseLookupBNS": func(s func(string) string, _ map[string]any) string {
		return fmt.Sprintf("Finding names of %s", short(s("address")))
	},
	"registerBNS": func(s func(string) string, _ map[string]any) string {
		ns := s("namespace")
		if ns == "" {
			ns = "btc"
		}
		return fmt.Sprintf("Preparing registration of %s.%s", s("name"), ns)
	},

	// DeFi
	"getStacksTVL":      func(func(string) string, map[string]any) string { return "Fetching Stacks TVL" },
	"getDefiCategories": func(func(string) string, map[string]any) string { return "Fetching DeFi categories" },
	"getTopProtocols": func(_ func(string) string, args map[string]any) string {
		if n, ok := args["limit"].(float64); ok {
			return fmt.Sprintf("Fetching top %d protocols", int(n))
		}
		return "Fetching top protocols"
	},
	"getProtocolInfo": func(s func(string) string, _ map[string]any) string {
		return fmt.Sprintf("Fetching protocol %q", s("protocolName"))
	},

	// Knowledge
	"getStacksKnowledge": func(s func(string) string, _ map[string]any) string {
		return fmt.Sprintf("Searching the docs for %q", Truncate(s("question"), 60))
	},

	// Transactions
	"sendToken": func(s func(string) string, _ map[string]any) string {
		token := s("token")
		if token == "" {
			token = "STX"
		}
		return fmt.Sprintf("Preparing transfer of %s %s to %s", s("amount"), token, short(s("recipient")))
	},
	"multiSend": func(_ func(string) string, args map[string]any) string {
		n := 0
		if arr, ok := args["recipients"].([]any); ok {
			n = len(arr)
		}
		return fmt.Sprintf("Preparing STX transfer to %d recipients", n)
	},
	"swapToken": func(s func(string) string, _ map[string]any) string {
		return fmt.Sprintf("Preparing swap of %s %s to %s", s("amount"), s("fromToken"), s("toToken"))
	},
	"stackStx": func(s func(string) string, _ map[string]any) string {
		switch s("mode") {
		case "solo":
			return fmt.Sprintf("Preparing stacking of %s STX", s("amount"))
		case "pool":
			return fmt.Sprintf("Preparing delegation of %s STX to %s", s("amount"), short(s("poolAddress")))
		}
		return "Checking stacking position"
	},
	"bridgeToken": func(s func(string) string, _ map[string]any) string {
		if s("direction") == "withdraw" {
			return fmt.Sprintf("Preparing withdrawal of %s sBTC", s("amount"))
		}
		return fmt.Sprintf("Preparing deposit of %s BTC", s("amount"))
	},
}

// FormatToolCall returns a readable description of a tool invocation.
func FormatToolCall(toolName, argsJSON string) string {
	var args map[string]any
	if argsJSON != "" {
		_ = json.Unmarshal([]byte(argsJSON), &args)
	}

	str := func(key string) string {
		if v, ok := args[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}

	if fn, ok := toolFormatters[toolName]; ok {
		return fn(str, args)
	}

	if argsJSON != "" && argsJSON != "{}" {
		return fmt.Sprintf("Calling %s %s", toolName, Truncate(argsJSON, 80))
	}
	return fmt.Sprintf("Calling %s", toolName)
}

// short abbreviates long Stacks addresses and tx ids to head...tail.
func short(s string) string {
	if len(s) <= 16 || strings.ContainsAny(s, " \n") {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}
