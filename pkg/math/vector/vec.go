package vector

type V []float64

func New(vec []float64) V {
	return vec
}

func (v V) Copy() V {
	var v1 = make(V, len(v))
	copy(v1, v)
	return v1
}

// Add accumulates vec into v elementwise. Extra elements of vec are ignored.
func (v V) Add(vec V) {
	for i := range v {
		if i >= len(vec) {
			return
		}
		v[i] += vec[i]
	}
}

func (v V) Scale(value float64) {
	for i := range v {
		v[i] *= value
	}
}

func (v V) Sum() float64 {
	var s float64
	for i := range v {
		s += v[i]
	}
	return s
}

// Mean is NaN for an empty vector.
func (v V) Mean() float64 {
	return v.Sum() / float64(len(v))
}
