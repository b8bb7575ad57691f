package story

// EdgeKind names the field an outgoing step reference lives in.
type EdgeKind string

const (
	EdgeNext   EdgeKind = "next"
	EdgeChoice EdgeKind = "choice"
	EdgeBranch EdgeKind = "branch"
)

// Ref is one outgoing reference from a step to another step in the same scene.
// Index is the position in the choice or branch list, and 0 for EdgeNext.
type Ref struct {
	Kind   EdgeKind `json:"kind"`
	Index  int      `json:"index"`
	Target string   `json:"target"`
}

// References lists the non-empty same-scene references of a step in field order.
// Scene transitions reference scenes, not steps, and report none.
func References(s Step) []Ref {
	var refs []Ref
	switch st := s.(type) {
	case *DialogueStep:
		refs = appendNext(refs, st.Next)
	case *DescriptionStep:
		refs = appendNext(refs, st.Next)
		for i, br := range st.ConditionalBranches {
			if br.Next != "" {
				refs = append(refs, Ref{Kind: EdgeBranch, Index: i, Target: br.Next})
			}
		}
	case *ChoiceStep:
		for i, ch := range st.Choices {
			if ch.Next != "" {
				refs = append(refs, Ref{Kind: EdgeChoice, Index: i, Target: ch.Next})
			}
		}
	case *ImageStep:
		refs = appendNext(refs, st.Next)
	case *SceneTransitionStep:
	}
	return refs
}

func appendNext(refs []Ref, next string) []Ref {
	if next == "" {
		return refs
	}
	return append(refs, Ref{Kind: EdgeNext, Target: next})
}

// RewriteReferences retargets every reference to from so it points at to.
// It returns the number of references changed.
func RewriteReferences(s Step, from, to string) int {
	if from == "" {
		return 0
	}
	n := 0
	swap := func(p *string) {
		if *p == from {
			*p = to
			n++
		}
	}
	switch st := s.(type) {
	case *DialogueStep:
		swap(&st.Next)
	case *DescriptionStep:
		swap(&st.Next)
		for i := range st.ConditionalBranches {
			swap(&st.ConditionalBranches[i].Next)
		}
	case *ChoiceStep:
		for i := range st.Choices {
			swap(&st.Choices[i].Next)
		}
	case *ImageStep:
		swap(&st.Next)
	case *SceneTransitionStep:
	}
	return n
}

// StripReferences removes every reference whose target satisfies dead.
// Single next pointers are cleared; choices and branches pointing at a dead
// target are removed from their lists. It returns the number removed.
func StripReferences(s Step, dead func(id string) bool) int {
	n := 0
	drop := func(p *string) {
		if *p != "" && dead(*p) {
			*p = ""
			n++
		}
	}
	switch st := s.(type) {
	case *DialogueStep:
		drop(&st.Next)
	case *DescriptionStep:
		drop(&st.Next)
		kept := st.ConditionalBranches[:0]
		for _, br := range st.ConditionalBranches {
			if br.Next != "" && dead(br.Next) {
				n++
				continue
			}
			kept = append(kept, br)
		}
		if st.ConditionalBranches != nil {
			st.ConditionalBranches = kept
		}
	case *ChoiceStep:
		kept := st.Choices[:0]
		for _, ch := range st.Choices {
			if ch.Next != "" && dead(ch.Next) {
				n++
				continue
			}
			kept = append(kept, ch)
		}
		if st.Choices != nil {
			st.Choices = kept
		}
	case *ImageStep:
		drop(&st.Next)
	case *SceneTransitionStep:
	}
	return n
}

// ImagePaths returns the asset paths referenced by image steps in the document.
func (d Document) ImagePaths() map[string]int {
	paths := make(map[string]int)
	for _, sc := range d {
		if sc == nil {
			continue
		}
		for _, st := range sc.Steps {
			if img, ok := st.(*ImageStep); ok && img.Image.Path != "" {
				paths[img.Image.Path]++
			}
		}
	}
	return paths
}
