package venue

// defaultVenue is the floor used when no venue file is configured.
const defaultVenue = `
name: default
grid:
  rows: 15
  cols: 18
grace_period: 0s
propagation_days: 60
assignment_order: [1, 2, 3, 4, 5, 6, 7]
tables:
  - {id: 1, name: T1, max_capacity: 2, row: 1,  column: 1}
  - {id: 2, name: T2, max_capacity: 2, row: 1,  column: 4}
  - {id: 3, name: T3, max_capacity: 2, row: 1,  column: 7}
  - {id: 4, name: T4, max_capacity: 2, row: 1,  column: 10}
  - {id: 5, name: T5, max_capacity: 2, row: 8,  column: 1}
  - {id: 6, name: T6, max_capacity: 2, row: 8,  column: 4}
  - {id: 7, name: T7, max_capacity: 4, row: 8,  column: 10, width: 4, height: 3}
`

// DefaultConfig returns the decoded built-in venue.
func DefaultConfig() Config {
	cfg, err := decode([]byte(defaultVenue))
	if err != nil {
		panic("venue: built-in config is invalid: " + err.Error())
	}
	return cfg
}

// Default returns the built-in venue.
func Default() *Registry {
	r, err := Parse([]byte(defaultVenue))
	if err != nil {
		panic("venue: built-in config is invalid: " + err.Error())
	}
	return r
}
