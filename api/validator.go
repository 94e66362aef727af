package main

type validator struct {
	keys   []string
	errors map[string]string
}

func newValidator() *validator {
	return &validator{
		errors: make(map[string]string),
	}
}

// toError reports the first failed check as a validation error.
func (v *validator) toError() error {
	if v == nil || len(v.keys) == 0 {
		return nil
	}
	return validationError(v.errors[v.keys[0]])
}

func (v *validator) hasErrors() bool {
	return len(v.errors) != 0
}

func (v *validator) checkCond(cond bool, key, msg string) {
	if cond {
		return
	}
	if _, ok := v.errors[key]; !ok {
		v.keys = append(v.keys, key)
		v.errors[key] = msg
	}
}
