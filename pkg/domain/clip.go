package domain

// ClipAsset is a pre-recorded sign clip for one word or one letter.
type ClipAsset struct {
	Name string
	Path string
}

// ClipUnit stands in for one transcript word: either a single whole-word
// asset or the letter assets spelling it out.
type ClipUnit struct {
	Word    string
	Spelled bool
	Assets  []ClipAsset
}

type ClipSequence struct {
	Units []ClipUnit
}

func (s ClipSequence) Len() int {
	return len(s.Units)
}

// Paths flattens the sequence into the ordered list of clip files to render.
func (s ClipSequence) Paths() []string {
	var paths []string
	for _, u := range s.Units {
		for _, a := range u.Assets {
			paths = append(paths, a.Path)
		}
	}
	return paths
}

// Resolution is the resolver output together with what it had to leave out.
type Resolution struct {
	Sequence       ClipSequence
	DroppedWords   []string
	MissingLetters []string
}
