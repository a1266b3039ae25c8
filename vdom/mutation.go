package vdom

// Op names one primitive edit instruction. Backends interpret the opcode set
// with an implicit stack of freshly created nodes plus explicit ids.
type Op string

const (
	OpRegisterTemplate    Op = "RegisterTemplate"
	OpLoadTemplate        Op = "LoadTemplate"
	OpAssignID            Op = "AssignID"
	OpCreateText          Op = "CreateText"
	OpCreatePlaceholder   Op = "CreatePlaceholder"
	OpHydrateText         Op = "HydrateText"
	OpReplacePlaceholder  Op = "ReplacePlaceholder"
	OpAppendChildren      Op = "AppendChildren"
	OpReplaceWith         Op = "ReplaceWith"
	OpInsertAfter         Op = "InsertAfter"
	OpInsertBefore        Op = "InsertBefore"
	OpRemove              Op = "Remove"
	OpSetText             Op = "SetText"
	OpSetAttribute        Op = "SetAttribute"
	OpRemoveAttribute     Op = "RemoveAttribute"
	OpNewEventListener    Op = "NewEventListener"
	OpRemoveEventListener Op = "RemoveEventListener"
	OpPushRoot            Op = "PushRoot"
)

// Mutation is one instruction in the replayable edit log. Only the fields
// relevant to the opcode are set. The struct is flat so batches serialize
// directly to JSON for wire backends.
type Mutation struct {
	Op Op `json:"op"`

	// Template registration and loading.
	Template string `json:"template,omitempty"`
	Index    int    `json:"index,omitempty"`

	// Node addressing.
	ID   ElementID `json:"id,omitempty"`
	Path []uint8   `json:"path,omitempty"`

	// Text and attribute payloads.
	Value     string `json:"value,omitempty"`
	Name      string `json:"name,omitempty"`
	Namespace string `json:"ns,omitempty"`
	AttrValue any    `json:"attr_value,omitempty"`

	// Stack arity for append/replace/insert opcodes.
	Count int `json:"count,omitempty"`

	Bubbles bool `json:"bubbles,omitempty"`
}

// Sink consumes the mutations the diff engine emits, in emission order.
// A nil Sink means mutations are computed but discarded (suspended subtrees).
type Sink interface {
	RegisterTemplate(t *Template)
	LoadTemplate(name string, index int, id ElementID)
	AssignID(path []uint8, id ElementID)
	CreateText(value string, id ElementID)
	CreatePlaceholder(id ElementID)
	HydrateText(path []uint8, value string, id ElementID)
	ReplacePlaceholder(path []uint8, count int)
	AppendChildren(parent ElementID, count int)
	ReplaceWith(id ElementID, count int)
	InsertAfter(id ElementID, count int)
	InsertBefore(id ElementID, count int)
	Remove(id ElementID)
	SetText(value string, id ElementID)
	SetAttribute(name, namespace string, value any, id ElementID)
	RemoveAttribute(name, namespace string, id ElementID)
	NewEventListener(event string, id ElementID, bubbles bool)
	RemoveEventListener(event string, id ElementID, bubbles bool)
	PushRoot(id ElementID)
}

// MutationList records mutations as an ordered log. It implements Sink and is
// the batch unit handed to backends.
type MutationList struct {
	// Templates carries every template registered during the batch, keyed
	// off the log by name, so wire backends can ship full skeletons.
	Templates []*Template `json:"templates,omitempty"`
	Edits     []Mutation  `json:"edits"`
}

// NewMutationList returns an empty batch.
func NewMutationList() *MutationList {
	return &MutationList{}
}

// Len is the number of recorded edit instructions.
func (m *MutationList) Len() int { return len(m.Edits) }

func (m *MutationList) push(mu Mutation) { m.Edits = append(m.Edits, mu) }

func (m *MutationList) RegisterTemplate(t *Template) {
	m.Templates = append(m.Templates, t)
	m.push(Mutation{Op: OpRegisterTemplate, Template: t.Name})
}

func (m *MutationList) LoadTemplate(name string, index int, id ElementID) {
	m.push(Mutation{Op: OpLoadTemplate, Template: name, Index: index, ID: id})
}

func (m *MutationList) AssignID(path []uint8, id ElementID) {
	m.push(Mutation{Op: OpAssignID, Path: path, ID: id})
}

func (m *MutationList) CreateText(value string, id ElementID) {
	m.push(Mutation{Op: OpCreateText, Value: value, ID: id})
}

func (m *MutationList) CreatePlaceholder(id ElementID) {
	m.push(Mutation{Op: OpCreatePlaceholder, ID: id})
}

func (m *MutationList) HydrateText(path []uint8, value string, id ElementID) {
	m.push(Mutation{Op: OpHydrateText, Path: path, Value: value, ID: id})
}

func (m *MutationList) ReplacePlaceholder(path []uint8, count int) {
	m.push(Mutation{Op: OpReplacePlaceholder, Path: path, Count: count})
}

func (m *MutationList) AppendChildren(parent ElementID, count int) {
	m.push(Mutation{Op: OpAppendChildren, ID: parent, Count: count})
}

func (m *MutationList) ReplaceWith(id ElementID, count int) {
	m.push(Mutation{Op: OpReplaceWith, ID: id, Count: count})
}

func (m *MutationList) InsertAfter(id ElementID, count int) {
	m.push(Mutation{Op: OpInsertAfter, ID: id, Count: count})
}

func (m *MutationList) InsertBefore(id ElementID, count int) {
	m.push(Mutation{Op: OpInsertBefore, ID: id, Count: count})
}

func (m *MutationList) Remove(id ElementID) {
	m.push(Mutation{Op: OpRemove, ID: id})
}

func (m *MutationList) SetText(value string, id ElementID) {
	m.push(Mutation{Op: OpSetText, Value: value, ID: id})
}

func (m *MutationList) SetAttribute(name, namespace string, value any, id ElementID) {
	m.push(Mutation{Op: OpSetAttribute, Name: name, Namespace: namespace, AttrValue: value, ID: id})
}

func (m *MutationList) RemoveAttribute(name, namespace string, id ElementID) {
	m.push(Mutation{Op: OpRemoveAttribute, Name: name, Namespace: namespace, ID: id})
}

func (m *MutationList) NewEventListener(event string, id ElementID, bubbles bool) {
	m.push(Mutation{Op: OpNewEventListener, Name: event, ID: id, Bubbles: bubbles})
}

func (m *MutationList) RemoveEventListener(event string, id ElementID, bubbles bool) {
	m.push(Mutation{Op: OpRemoveEventListener, Name: event, ID: id, Bubbles: bubbles})
}

func (m *MutationList) PushRoot(id ElementID) {
	m.push(Mutation{Op: OpPushRoot, ID: id})
}
