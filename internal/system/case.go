package system

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"slices"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/copyleftdev/crat/internal/optimization"
)

// Case is a partition of a system's entities into classes. Classes are
// iterated in ascending id order.
type Case struct {
	Name     string
	entities map[int]Entity
	classes  map[int]Class
	order    []int
}

// NewCase builds a case from entities and classes. A later class with an
// already used id replaces the earlier one.
func NewCase(name string, entities []Entity, classes []Class) *Case {
	c := &Case{
		Name:     name,
		entities: make(map[int]Entity, len(entities)),
		classes:  make(map[int]Class, len(classes)),
	}
	for _, e := range entities {
		c.entities[e.ID] = e
	}
	for _, cl := range classes {
		if _, seen := c.classes[cl.ID]; !seen {
			c.order = append(c.order, cl.ID)
		}
		c.classes[cl.ID] = cl
	}
	slices.Sort(c.order)
	return c
}

// Classes returns the declared classes, including empty ones, by ascending id.
func (c *Case) Classes() []Class {
	out := make([]Class, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.classes[id])
	}
	return out
}

// Entity returns the entity with the given id.
func (c *Case) Entity(id int) (Entity, bool) {
	e, ok := c.entities[id]
	return e, ok
}

// NumOfEntities returns the number of declared entities.
func (c *Case) NumOfEntities() int {
	return len(c.entities)
}

type rawEntity struct {
	ID      int    `mapstructure:"id"`
	Name    string `mapstructure:"name"`
	Kind    string `mapstructure:"kind"`
	Related []int  `mapstructure:"related"`
}

type rawClass struct {
	Name     string `mapstructure:"name"`
	Entities []int  `mapstructure:"entities"`
}

type rawCase struct {
	Name     string              `mapstructure:"name"`
	Entities []rawEntity         `mapstructure:"entities"`
	Classes  map[string]rawClass `mapstructure:"classes"`
}

// LoadCase reads a JSON case description from r. Numbers are kept as
// json.Number so that ids are parsed exactly.
func LoadCase(r io.Reader, log *zap.Logger) (*Case, error) {
	var doc map[string]interface{}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, optimization.WrapErrorf(
			fmt.Errorf("%w: %v", optimization.ErrInvalidCase, err), "malformed json").
			WithComponent("system").WithOperation("LoadCase")
	}
	return DecodeCase(doc, log)
}

// DecodeCase converts a generic document, as produced by encoding/json,
// into a Case. Ids must be integers, given either as json.Number or as
// whole float64 values. Class keys are decimal class ids. Every class
// member must be a declared entity; whether the classes form a proper
// partition is left to the supplier.
func DecodeCase(doc map[string]interface{}, log *zap.Logger) (*Case, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var raw rawCase
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: rejectFractional,
		Result:     &raw,
	})
	if err != nil {
		return nil, invalidCase(err, "decoder")
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, invalidCase(err, "decode")
	}

	entities := make([]Entity, 0, len(raw.Entities))
	known := make(map[int]struct{}, len(raw.Entities))
	for _, re := range raw.Entities {
		entities = append(entities, Entity{
			ID:      re.ID,
			Name:    re.Name,
			Kind:    re.Kind,
			Related: NewEntitySet(re.Related...),
		})
		known[re.ID] = struct{}{}
	}

	classes := make([]Class, 0, len(raw.Classes))
	for key, rc := range raw.Classes {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, invalidCase(err, "class key %q", key)
		}
		for _, member := range rc.Entities {
			if _, ok := known[member]; !ok {
				return nil, optimization.WrapErrorf(optimization.ErrUnknownEntity,
					"class %d references entity %d", id, member).
					WithComponent("system").WithOperation("DecodeCase")
			}
		}
		if len(rc.Entities) == 0 {
			log.Debug("empty class declared", zap.Int("class_id", id), zap.String("name", rc.Name))
		}
		classes = append(classes, Class{ID: id, Name: rc.Name, Entities: NewEntitySet(rc.Entities...)})
	}

	c := NewCase(raw.Name, entities, classes)
	log.Info("case loaded",
		zap.String("case", c.Name),
		zap.Int("entities", len(entities)),
		zap.Int("classes", len(classes)))
	return c, nil
}

// rejectFractional stops mapstructure from truncating 1.9 to 1 when a
// float64 lands in an int field.
func rejectFractional(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.Int || from.Kind() != reflect.Float64 {
		return data, nil
	}
	if f := reflect.ValueOf(data).Float(); f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not an integer id", f)
	}
	return data, nil
}

func invalidCase(err error, format string, args ...interface{}) *optimization.Error {
	return optimization.WrapErrorf(fmt.Errorf("%w: %v", optimization.ErrInvalidCase, err), format, args...).
		WithComponent("system").WithOperation("DecodeCase")
}
