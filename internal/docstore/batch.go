package docstore

type batchOp struct {
	kind MutationKind
	ref  Ref
	data Document
}

// Batch collects writes that are committed atomically.
type Batch struct {
	ops []batchOp
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Merge deep-merges doc into the document at ref.
func (b *Batch) Merge(ref Ref, doc Document) *Batch {
	b.ops = append(b.ops, batchOp{kind: MutationMerge, ref: ref, data: doc})
	return b
}

// Set replaces the document at ref with doc.
func (b *Batch) Set(ref Ref, doc Document) *Batch {
	b.ops = append(b.ops, batchOp{kind: MutationSet, ref: ref, data: doc})
	return b
}

// Delete removes the document at ref.
func (b *Batch) Delete(ref Ref) *Batch {
	b.ops = append(b.ops, batchOp{kind: MutationDelete, ref: ref})
	return b
}

// Len returns the number of queued writes.
func (b *Batch) Len() int {
	return len(b.ops)
}

func (b *Batch) resolve(uid string) []Mutation {
	muts := make([]Mutation, 0, len(b.ops))
	for _, op := range b.ops {
		muts = append(muts, Mutation{Kind: op.kind, Path: op.ref.Path(uid), Data: op.data})
	}
	return muts
}
