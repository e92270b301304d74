package dao

// Parameter is a named List filter. The only attribute the built-in stores
// understand is "Status"; unknown names match everything.
type Parameter struct {
	Name  string
	Value interface{}
}

// NewParameter creates a filter parameter; multiple values match any of them.
func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}

// FilterByStatus reports whether an entity with the given status passes the
// supplied filter parameters.
func FilterByStatus(status string, parameters []*Parameter) bool {
	if len(parameters) != 1 || parameters[0].Name != "Status" {
		return true
	}
	switch actual := parameters[0].Value.(type) {
	case string:
		return status == actual
	case []string:
		for _, s := range actual {
			if status == s {
				return true
			}
		}
		return false
	}
	return true
}
