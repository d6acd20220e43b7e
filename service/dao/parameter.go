package dao

// Parameter narrows a List call, e.g. plane_id=ab12cd34
type Parameter struct {
	Name  string
	Value interface{}
}

// NewParameter creates a parameter; multiple values are kept as a slice
func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}

// Matches reports whether value satisfies the parameter
func (p *Parameter) Matches(value string) bool {
	switch actual := p.Value.(type) {
	case string:
		return actual == value
	case []string:
		for _, candidate := range actual {
			if candidate == value {
				return true
			}
		}
	}
	return false
}
