package main

import (
	"fmt"
	"strings"

	"github.com/xlab/treeprint"

	"github.com/apparentlymart/adl-meta/adl"
)

func modelTree(m *adl.Model) treeprint.Tree {
	tree := treeprint.New()
	tree.SetValue(fmt.Sprintf("%s (%s)", m.Name, m.AsmConfig.Arch))

	regs := tree.AddBranch("registers")
	for _, r := range m.SortedRegisters() {
		regs.AddNode(fmt.Sprintf("%s: %s, %d x %d bits", r.Name, r.Kind, r.Size, r.Width))
	}

	classes := tree.AddBranch("register classes")
	for _, c := range m.Classes.SortedClasses() {
		classes.AddNode(fmt.Sprintf("%s [%s]", c.Name, strings.Join(c.Members, " ")))
	}
	for _, p := range m.Classes.SortedPairs() {
		classes.AddNode(fmt.Sprintf("%s (pairs of %s) [%s]", p.Name, p.Base, strings.Join(p.Members, " ")))
	}

	fields := tree.AddBranch("fields")
	for _, name := range m.Fields.Names() {
		f, _ := m.Fields.Lookup(name)
		fields.AddNode(fmt.Sprintf("%s: %s", name, decodeExpr(f.DecodeSteps())))
	}

	imms := tree.AddBranch("immediate classes")
	for _, c := range m.SortedImmediates() {
		imms.AddNode(fmt.Sprintf("%s: %s", c.Name, c.Predicate))
	}

	instrs := tree.AddBranch("instructions")
	for _, om := range m.SortedInstructions() {
		b := instrs.AddBranch(om.AsmString)
		if len(om.Outs) > 0 {
			b.AddNode("outs: " + operandList(om.Outs))
		}
		if len(om.Ins) > 0 {
			b.AddNode("ins: " + operandList(om.Ins))
		}
		for _, c := range om.Constraints {
			b.AddNode("constraint: " + c)
		}
		if om.AliasOf != "" {
			b.AddNode("alias of " + om.AliasOf)
		}
	}
	return tree
}

func operandList(ops []adl.Operand) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op.Class + ":$" + op.Name
	}
	return strings.Join(parts, ", ")
}

func decodeExpr(steps []adl.DecodeStep) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, " | ")
}
