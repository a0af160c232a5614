// Copyright 2025 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errorgen implements the error-injection translator used for
// fault-injection testing of the graph above it: per configured fop and
// probability, it substitutes a configured errno for the real reply on
// the unwind path.
package errorgen

import (
	"math/rand"

	"github.com/gluster-go/glusterfsd/internal/stack"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

// Rule configures fault injection for one fop: Probability is a percent
// in [0,100]; when it fires, Errno is substituted for whatever the real
// downstream reply would have been.
type Rule struct {
	Errno       xlator.Errno
	Probability int
}

// Translator is a pass-through xlator.Translator that, per Rule, injects
// a configured errno on the unwind path instead of forwarding the real
// reply.
type Translator struct {
	name  string
	child xlator.Translator
	opts  *xlator.Options

	rules map[xlator.Fop]Rule
	rand  func() int // returns [0,100), overridable for deterministic tests
}

var optionSpec = []xlator.OptionSpec{
	{Key: "enable", Default: false},
	{Key: "random", Default: true},
}

// New builds an error-injection translator with the given per-fop rules.
func New(name string, child xlator.Translator, rules map[xlator.Fop]Rule) *Translator {
	return &Translator{
		name:  name,
		child: child,
		opts:  xlator.NewOptions(optionSpec),
		rules: rules,
		rand:  func() int { return rand.Intn(100) },
	}
}

func (t *Translator) Name() string                        { return t.name }
func (t *Translator) Init() error                          { return nil }
func (t *Translator) Fini() error                          { return nil }
func (t *Translator) Children() []xlator.Translator        { return []xlator.Translator{t.child} }
func (t *Translator) Options() *xlator.Options             { return t.opts }
func (t *Translator) Notify(xlator.NotifyEvent, any) error { return nil }

func (t *Translator) Fop(op xlator.Fop) xlator.FopFunc {
	if !t.opts.Bool("enable") {
		return nil
	}
	if _, ok := t.rules[op]; !ok {
		return nil
	}
	return func(frame any, args any) {
		f := frame.(*stack.Frame)
		rule := t.rules[op]

		if t.rand() < rule.Probability {
			stack.Unwind(f, rule.Errno, nil)
			return
		}

		stack.Wind(f, func(child *stack.Frame) {
			stack.Unwind(f, child.Errno, child.Reply)
		}, t.child, op, args)
	}
}
