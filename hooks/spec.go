// Package hooks implements the Hook Registry & Dispatcher (spec.md §4.7):
// chainhook specification parsing, activation rules, the dispatch
// algorithm, payload construction with inclusion-flag gating, delivery
// actions, and a bounded worker pool with per-hook FIFO and retry.
package hooks

import (
	"gopkg.in/yaml.v3"

	"github.com/pkg/errors"

	"github.com/daglabs/chainhook/predicate"
)

// Chain tags which fork manager a ChainhookSpecification targets.
type Chain string

const (
	ChainBitcoin Chain = "bitcoin"
	ChainStacks  Chain = "stacks"
)

// ActionKind tags the delivery action variant (spec.md §4.7).
type ActionKind string

const (
	ActionHttpPost   ActionKind = "http_post"
	ActionFileAppend ActionKind = "file_append"
	ActionNoop       ActionKind = "noop"
)

// Action is a tagged-variant delivery action.
type Action struct {
	Kind ActionKind

	URL                 string
	Method               string
	AuthorizationHeader string

	Path string
}

// ResolvedHook is one network's worth of a ChainhookSpecification,
// flattened to the single configuration active for the node's
// currently-configured network. The registry operates on these, not on
// the raw multi-network specification file.
type ResolvedHook struct {
	UUID    string
	Name    string
	Version int
	Chain   Chain
	Network string

	BitcoinPredicate *predicate.BitcoinPredicate
	StacksPredicate  *predicate.StacksPredicate

	Action Action

	StartBlock            *uint64
	EndBlock              *uint64
	ExpireAfterOccurrence *uint64

	IncludeInputs  bool
	IncludeOutputs bool
	IncludeWitness bool
	IncludeProof   bool

	// Mutable registry-managed state.
	Enabled         bool
	ExpiredAt       *uint64
	occurrenceCount uint64
}

type rawSpecification struct {
	Name     string                     `yaml:"name"`
	Version  int                        `yaml:"version"`
	Chain    string                     `yaml:"chain"`
	Networks map[string]rawNetworkEntry `yaml:"networks"`
}

type rawNetworkEntry struct {
	Predicate             yaml.Node `yaml:"predicate"`
	Action                rawAction `yaml:"action"`
	StartBlock            *uint64   `yaml:"start_block,omitempty"`
	EndBlock              *uint64   `yaml:"end_block,omitempty"`
	ExpireAfterOccurrence *uint64   `yaml:"expire_after_occurrence,omitempty"`
	IncludeInputs         bool      `yaml:"include_inputs,omitempty"`
	IncludeOutputs        bool      `yaml:"include_outputs,omitempty"`
	IncludeWitness        bool      `yaml:"include_witness,omitempty"`
	IncludeProof          bool      `yaml:"include_proof,omitempty"`
}

type rawAction struct {
	HttpPost *struct {
		URL                 string `yaml:"url"`
		Method               string `yaml:"method"`
		AuthorizationHeader string `yaml:"authorization_header,omitempty"`
	} `yaml:"http_post,omitempty"`
	FileAppend *struct {
		Path string `yaml:"path"`
	} `yaml:"file_append,omitempty"`
	Noop *struct{} `yaml:"noop,omitempty"`
}

func (a rawAction) resolve() (Action, error) {
	switch {
	case a.HttpPost != nil:
		return Action{
			Kind:                ActionHttpPost,
			URL:                 a.HttpPost.URL,
			Method:              a.HttpPost.Method,
			AuthorizationHeader: a.HttpPost.AuthorizationHeader,
		}, nil
	case a.FileAppend != nil:
		return Action{Kind: ActionFileAppend, Path: a.FileAppend.Path}, nil
	case a.Noop != nil:
		return Action{Kind: ActionNoop}, nil
	}
	return Action{}, errors.New("action must set exactly one of http_post, file_append, noop")
}

// ParseSpecification parses a chainhook YAML specification (spec.md §6)
// and resolves it to the single network the caller is running against.
// A hook rejected at this stage is never stored, per the §7 error
// taxonomy's "configuration error at registration" rule.
func ParseSpecification(data []byte, uuid string, network string) (*ResolvedHook, error) {
	var raw rawSpecification
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "malformed chainhook specification")
	}

	chain := Chain(raw.Chain)
	if chain != ChainBitcoin && chain != ChainStacks {
		return nil, errors.Errorf("unrecognized chain %q", raw.Chain)
	}

	entry, ok := raw.Networks[network]
	if !ok {
		return nil, errors.Errorf("chainhook %q has no configuration for network %q", raw.Name, network)
	}

	action, err := entry.Action.resolve()
	if err != nil {
		return nil, errors.Wrapf(err, "chainhook %q", raw.Name)
	}

	hook := &ResolvedHook{
		UUID:                  uuid,
		Name:                  raw.Name,
		Version:               raw.Version,
		Chain:                 chain,
		Network:               network,
		Action:                action,
		StartBlock:            entry.StartBlock,
		EndBlock:              entry.EndBlock,
		ExpireAfterOccurrence: entry.ExpireAfterOccurrence,
		IncludeInputs:         entry.IncludeInputs,
		IncludeOutputs:        entry.IncludeOutputs,
		IncludeWitness:        entry.IncludeWitness,
		IncludeProof:          entry.IncludeProof,
		Enabled:               true,
	}

	switch chain {
	case ChainBitcoin:
		var p predicate.BitcoinPredicate
		if err := entry.Predicate.Decode(&p); err != nil {
			return nil, errors.Wrapf(err, "chainhook %q: malformed bitcoin predicate", raw.Name)
		}
		hook.BitcoinPredicate = &p
	case ChainStacks:
		var p predicate.StacksPredicate
		if err := entry.Predicate.Decode(&p); err != nil {
			return nil, errors.Wrapf(err, "chainhook %q: malformed stacks predicate", raw.Name)
		}
		hook.StacksPredicate = &p
	}

	return hook, nil
}
