package tree

// ExampleSet holds parallel labels and feature vectors. The zero value is an
// empty set ready for use.
type ExampleSet[Y, X any] struct {
	Y []Y
	X []X
}

// NewExampleSet wraps the given labels and features, which must have the
// same length.
func NewExampleSet[Y, X any](labels []Y, features []X) *ExampleSet[Y, X] {
	if len(labels) != len(features) {
		panic("tree: labels and features differ in length")
	}
	return &ExampleSet[Y, X]{Y: labels, X: features}
}

// Len returns the number of examples.
func (s *ExampleSet[Y, X]) Len() int { return len(s.Y) }

// Labels returns the label of every example.
func (s *ExampleSet[Y, X]) Labels() []Y { return s.Y }

// Features returns the feature vector of every example.
func (s *ExampleSet[Y, X]) Features() []X { return s.X }

// Add appends one example.
func (s *ExampleSet[Y, X]) Add(y Y, x X) {
	s.Y = append(s.Y, y)
	s.X = append(s.X, x)
}

// Subset returns a new set holding the examples referenced in inx, in order.
func (s *ExampleSet[Y, X]) Subset(inx []int) *ExampleSet[Y, X] {
	sub := &ExampleSet[Y, X]{
		Y: make([]Y, 0, len(inx)),
		X: make([]X, 0, len(inx)),
	}
	for _, i := range inx {
		s.PushTo(sub, i)
	}
	return sub
}

// PushTo appends the ith example to dst.
func (s *ExampleSet[Y, X]) PushTo(dst *ExampleSet[Y, X], i int) {
	dst.Add(s.Y[i], s.X[i])
}

// Reset drops every example and releases the backing arrays.
func (s *ExampleSet[Y, X]) Reset() {
	s.Y = nil
	s.X = nil
}
