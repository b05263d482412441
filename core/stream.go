package core

import (
	"fmt"

	"github.com/tsawler/rangeload/internal/filters"
)

// Decode returns the stream data with every filter in /Filter applied in
// order. The result is cached.
func (s *Stream) Decode() ([]byte, error) {
	if s.decoded != nil {
		return s.decoded, nil
	}

	names, params, err := s.filterChain()
	if err != nil {
		return nil, err
	}

	data := s.Data
	for i, name := range names {
		if data, err = filters.Decode(name, data, params[i]); err != nil {
			return nil, err
		}
	}
	s.decoded = data
	return data, nil
}

// filterChain lists the /Filter names and their matching /DecodeParms.
func (s *Stream) filterChain() ([]string, []filters.Params, error) {
	var names []string
	switch f := s.Dict["Filter"].(type) {
	case nil:
		return nil, nil, nil
	case Name:
		names = []string{string(f)}
	case Array:
		for _, obj := range f {
			n, ok := obj.(Name)
			if !ok {
				return nil, nil, fmt.Errorf("filter array holds %s", obj.Type())
			}
			names = append(names, string(n))
		}
	default:
		return nil, nil, fmt.Errorf("/Filter is %s", f.Type())
	}

	params := make([]filters.Params, len(names))
	switch p := s.Dict["DecodeParms"].(type) {
	case Dict:
		params[0] = dictToParams(p)
	case Array:
		for i, obj := range p {
			if d, ok := obj.(Dict); ok && i < len(params) {
				params[i] = dictToParams(d)
			}
		}
	}
	return names, params, nil
}

func dictToParams(d Dict) filters.Params {
	params := make(filters.Params, len(d))
	for k, v := range d {
		switch v := v.(type) {
		case Int:
			params[k] = int(v)
		case Real:
			params[k] = float64(v)
		case Bool:
			params[k] = bool(v)
		case Name:
			params[k] = string(v)
		case String:
			params[k] = string(v)
		}
	}
	return params
}
