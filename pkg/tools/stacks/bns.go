package stacks

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/germanamz/blasko/pkg/tools/toolbox"
	"github.com/germanamz/blasko/pkg/tools/toolerr"
)

const defaultNamespace = "btc"

var bnsLabelRe = regexp.MustCompile(`^[a-z0-9_-]+$`)

// --- resolveBNS ---

type resolveBNSInput struct {
	Input string `json:"input"`
}

type resolveBNSOutput struct {
	Type      string  `json:"type"`
	Input     string  `json:"input"`
	Address   *string `json:"address"`
	BNSName   *string `json:"bnsName"`
	Owner     string  `json:"owner,omitempty"`
	Namespace string  `json:"namespace,omitempty"`
	Name      string  `json:"name,omitempty"`
	Zonefile  string  `json:"zonefile,omitempty"`
	Message   string  `json:"message"`
	Error     string  `json:"error,omitempty"`
}

func (s *Stacks) resolveBNSTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "resolveBNS",
		Description: `Resolve a BNS (Bitcoin Name Service) name to a Stacks address, or validate a Stacks address. Use this when the user provides a BNS name like "alice.btc" or "bob.id" and you need the corresponding Stacks address, or to check whether an input is a valid address or BNS name.`,
		InputSchema: object(map[string]*jsonschema.Schema{
			"input": str(`The BNS name (e.g. "alice.btc", "bob.id") or Stacks address (SP... or ST...) to resolve or validate`),
		}, "input"),
		Handler: toolbox.Typed(s.resolveBNS),
	}
}

func (s *Stacks) resolveBNS(ctx context.Context, in resolveBNSInput) (any, error) {
	input := strings.TrimSpace(in.Input)

	if isStacksAddress(input) {
		return resolveBNSOutput{
			Type:    "address",
			Input:   input,
			Address: &input,
			Message: "Valid Stacks address",
		}, nil
	}

	if !strings.Contains(input, ".") {
		return resolveBNSOutput{
			Type:    "unknown",
			Input:   input,
			Message: "Input is neither a valid Stacks address nor a BNS name",
			Error:   "invalid_format",
		}, nil
	}

	name, namespace, _ := strings.Cut(input, ".")

	info, err := s.hiro.Name(ctx, input)
	switch {
	case toolerr.IsNotFound(err):
		return resolveBNSOutput{
			Type:    "bns",
			Input:   input,
			BNSName: &input,
			Message: fmt.Sprintf("BNS name %q not found or not registered", input),
			Error:   "not_found",
		}, nil
	case err != nil:
		return nil, err
	}

	return resolveBNSOutput{
		Type:      "bns",
		Input:     input,
		Address:   &info.Address,
		BNSName:   &input,
		Owner:     info.Address,
		Namespace: namespace,
		Name:      name,
		Zonefile:  info.Zonefile,
		Message:   fmt.Sprintf("Resolved %s to %s", input, info.Address),
	}, nil
}

// --- reverseLookupBNS ---

type reverseLookupBNSInput struct {
	Address string `json:"address"`
}

type reverseLookupBNSOutput struct {
	Address  string   `json:"address"`
	BNSName  *string  `json:"bnsName"`
	AllNames []string `json:"allNames"`
	Message  string   `json:"message"`
	Error    string   `json:"error,omitempty"`
}

func (s *Stacks) reverseLookupBNSTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "reverseLookupBNS",
		Description: `Get the BNS (Bitcoin Name Service) name associated with a Stacks address. Use this when you want to find out which BNS name (like "alice.btc") a Stacks address owns. A principal can only own one name at a time.`,
		InputSchema: object(map[string]*jsonschema.Schema{
			"address": str("The Stacks address (SP... or ST...) to look up"),
		}, "address"),
		Handler: toolbox.Typed(s.reverseLookupBNS),
	}
}

func (s *Stacks) reverseLookupBNS(ctx context.Context, in reverseLookupBNSInput) (any, error) {
	if !isStacksAddress(in.Address) {
		return reverseLookupBNSOutput{
			Address: in.Address,
			Message: "Invalid Stacks address format",
			Error:   "invalid_address",
		}, nil
	}

	none := reverseLookupBNSOutput{
		Address:  in.Address,
		AllNames: []string{},
		Message:  "No BNS names found for this address",
	}

	owned, err := s.hiro.NamesOwned(ctx, in.Address)
	switch {
	case toolerr.IsNotFound(err):
		return none, nil
	case err != nil:
		return nil, err
	case len(owned.Names) == 0:
		return none, nil
	}

	primary := owned.Names[0]
	return reverseLookupBNSOutput{
		Address:  in.Address,
		BNSName:  &primary,
		AllNames: owned.Names,
		Message:  "Found BNS name: " + primary,
	}, nil
}

// --- registerBNS ---

type registerBNSInput struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

type priceInfo struct {
	EstimatedPriceMicroSTX int64   `json:"estimatedPriceMicroSTX"`
	EstimatedPriceSTX      float64 `json:"estimatedPriceSTX"`
	Note                   string  `json:"note"`
}

type registrationMethod struct {
	Method      string   `json:"method"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Warning     *string  `json:"warning"`
	Steps       []string `json:"steps"`
}

type registerBNSOutput struct {
	Name                string               `json:"name"`
	Namespace           string               `json:"namespace"`
	FullName            string               `json:"fullName"`
	Available           bool                 `json:"available"`
	Registered          bool                 `json:"registered"`
	Owner               string               `json:"owner,omitempty"`
	ExpiresAt           int64                `json:"expiresAt,omitempty"`
	RenewalHeight       int64                `json:"renewalHeight,omitempty"`
	Status              string               `json:"status,omitempty"`
	PriceInfo           *priceInfo           `json:"priceInfo,omitempty"`
	RegistrationMethods []registrationMethod `json:"registrationMethods,omitempty"`
	Message             string               `json:"message"`
}

func (s *Stacks) registerBNSTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "registerBNS",
		Description: `Check BNS (Bitcoin Name Service) name availability and help with registration using BNSv2. Use this when the user wants to register a BNS name like "alice.btc" or check whether a name is available. Returns availability, pricing and registration instructions.`,
		InputSchema: object(map[string]*jsonschema.Schema{
			"name":      str(`The BNS name to check or register (e.g. "alice" for alice.btc)`),
			"namespace": str(`The namespace (e.g. "btc", "id", "stx"). Defaults to "btc".`),
		}, "name"),
		Handler: toolbox.Typed(s.registerBNS),
	}
}

func (s *Stacks) registerBNS(ctx context.Context, in registerBNSInput) (any, error) {
	name := strings.ToLower(strings.TrimSpace(in.Name))
	namespace := strings.ToLower(strings.TrimSpace(in.Namespace))

	if n, ns, ok := strings.Cut(name, "."); ok {
		name = n
		if namespace == "" {
			namespace = ns
		}
	}
	if namespace == "" {
		namespace = defaultNamespace
	}

	if !bnsLabelRe.MatchString(name) {
		return nil, toolerr.Validation("name", "%q may only contain a-z, 0-9, - and _", in.Name)
	}
	if !bnsLabelRe.MatchString(namespace) {
		return nil, toolerr.Validation("namespace", "%q may only contain a-z, 0-9, - and _", in.Namespace)
	}

	fullName := name + "." + namespace
	out := registerBNSOutput{Name: name, Namespace: namespace, FullName: fullName}

	rec, err := s.bns.Lookup(ctx, fullName)
	switch {
	case toolerr.IsNotFound(err):
		price := namePrice(name)
		out.Available = true
		out.PriceInfo = &priceInfo{
			EstimatedPriceMicroSTX: price,
			EstimatedPriceSTX:      float64(price) / 1e6,
			Note:                   "Price is an estimate. The actual price is calculated when registering.",
		}
		out.RegistrationMethods = registrationMethods()
		out.Message = fullName + " is available for registration!"
		return out, nil
	case err != nil:
		return nil, err
	}

	out.Registered = true
	out.Owner = rec.OwnerAddress()
	out.ExpiresAt = rec.ExpireBlock
	out.RenewalHeight = rec.RenewalHeight
	out.Status = rec.Status
	out.Message = fmt.Sprintf("%s is already registered and owned by %s", fullName, out.Owner)

	return out, nil
}

// namePrice estimates the BNSv2 price in micro-STX; shorter names cost more.
func namePrice(name string) int64 {
	switch utf8.RuneCountInString(name) {
	case 1:
		return 400_000_000_000
	case 2:
		return 100_000_000_000
	case 3:
		return 40_000_000_000
	case 4:
		return 16_000_000_000
	case 5:
		return 6_400_000_000
	}
	return 2_560_000_000
}

func registrationMethods() []registrationMethod {
	frontRun := "Vulnerable to front-running. Others can see and snipe your name."
	return []registrationMethod{
		{
			Method:      "fast",
			Title:       "Fast Claim (Instant)",
			Description: "Register immediately in one transaction",
			Warning:     &frontRun,
			Steps:       []string{"Pay the registration fee", "Name is yours immediately"},
		},
		{
			Method:      "safe",
			Title:       "Safe Registration (Recommended)",
			Description: "Two-step process that prevents sniping",
			Steps: []string{
				"1. Preorder: Submit a hashed commitment",
				"2. Wait: 10 minutes for confirmation",
				"3. Register: Reveal and claim your name",
			},
		},
	}
}
