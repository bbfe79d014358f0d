package engine

// Algorithms returns every built-in algorithm, default first.
func Algorithms() []Algorithm {
	return []Algorithm{MergeSort{}, InsertionSort{}}
}

// AlgorithmNames returns the names of the built-in algorithms.
func AlgorithmNames() []string {
	algs := Algorithms()
	names := make([]string, len(algs))
	for i, a := range algs {
		names[i] = a.Name()
	}
	return names
}

// LookupAlgorithm returns the built-in algorithm with the given name.
// An empty name selects the default.
func LookupAlgorithm(name string) (Algorithm, error) {
	if name == "" {
		return MergeSort{}, nil
	}
	for _, a := range Algorithms() {
		if a.Name() == name {
			return a, nil
		}
	}
	return nil, NewUnknownAlgorithmError(name)
}
