package dto

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/handiism/stimulus/internal/model"
)

// Experiment is the on-disk form of an experiment file. The same struct is
// read from JSON and YAML.
//
// Policy fields hold the labels shown in the editor ("Random",
// "Select a new group on each show", ...). Short forms such as
// "on_each_show" are accepted too. Empty labels select the zero policy.
type Experiment struct {
	Name string `json:"name" yaml:"name"`

	IntergroupOrder     string `json:"intergroup_order,omitempty" yaml:"intergroup_order,omitempty"`
	IntragroupOrder     string `json:"intragroup_order,omitempty" yaml:"intragroup_order,omitempty"`
	IntergroupBehaviour string `json:"intergroup_behaviour,omitempty" yaml:"intergroup_behaviour,omitempty"`
	RateBehaviour       string `json:"rate_behaviour,omitempty" yaml:"rate_behaviour,omitempty"`

	AllowImageRepeat    bool `json:"allow_image_repeat" yaml:"allow_image_repeat"`
	AmountOfExhibitions int  `json:"amount_of_exhibitions" yaml:"amount_of_exhibitions"`

	// Times are in milliseconds.
	ShowTime     int `json:"show_time" yaml:"show_time"`
	IntervalTime int `json:"interval_time" yaml:"interval_time"`

	InteractionKey string `json:"interaction_key,omitempty" yaml:"interaction_key,omitempty"`
	SkipOnClick    bool   `json:"skip_on_click" yaml:"skip_on_click"`
	Screen         int    `json:"screen" yaml:"screen"`

	Groups []Group `json:"groups" yaml:"groups"`
}

// Group is one image group of an experiment file.
type Group struct {
	ID     int     `json:"id" yaml:"id"`
	Name   string  `json:"name" yaml:"name"`
	Rate   *int    `json:"rate,omitempty" yaml:"rate,omitempty"`
	Images []Image `json:"images" yaml:"images"`
}

// Image is one stimulus of an experiment file. A missing rate means 1.
type Image struct {
	ID   int    `json:"id" yaml:"id"`
	File string `json:"file" yaml:"file"`
	Rate *int   `json:"rate,omitempty" yaml:"rate,omitempty"`
}

func rateOrDefault(r *int) int {
	if r == nil {
		return 1
	}
	return *r
}

// ToExperiment converts the file form to a model.Experiment. baseDir is the
// directory relative image files are resolved against.
func (e *Experiment) ToExperiment(baseDir string) (*model.Experiment, error) {
	cfg := &model.Configuration{
		AllowImageRepeat:    e.AllowImageRepeat,
		AmountOfExhibitions: e.AmountOfExhibitions,
	}

	var err error
	if e.IntergroupOrder != "" {
		if cfg.IntergroupOrder, err = model.ParseOrder(e.IntergroupOrder); err != nil {
			return nil, fmt.Errorf("intergroup_order: %w", err)
		}
	}
	if e.IntragroupOrder != "" {
		if cfg.IntragroupOrder, err = model.ParseOrder(e.IntragroupOrder); err != nil {
			return nil, fmt.Errorf("intragroup_order: %w", err)
		}
	}
	if e.IntergroupBehaviour != "" {
		if cfg.IntergroupBehaviour, err = model.ParseIntergroupBehaviour(e.IntergroupBehaviour); err != nil {
			return nil, fmt.Errorf("intergroup_behaviour: %w", err)
		}
	}
	if e.RateBehaviour != "" {
		if cfg.RateBehaviour, err = model.ParseRateBehaviour(e.RateBehaviour); err != nil {
			return nil, fmt.Errorf("rate_behaviour: %w", err)
		}
	}

	for _, jg := range e.Groups {
		g := &model.Group{
			ID:     jg.ID,
			Name:   strings.TrimSpace(jg.Name),
			Rate:   rateOrDefault(jg.Rate),
			Images: make([]*model.Image, 0, len(jg.Images)),
		}
		for _, ji := range jg.Images {
			g.Images = append(g.Images, &model.Image{
				ID:   ji.ID,
				File: filepath.FromSlash(ji.File),
				Rate: rateOrDefault(ji.Rate),
			})
		}
		cfg.Groups = append(cfg.Groups, g)
	}

	return &model.Experiment{
		Name:   strings.TrimSpace(e.Name),
		Config: cfg,
		Presentation: model.Presentation{
			ShowTime:          time.Duration(e.ShowTime) * time.Millisecond,
			IntervalTime:      time.Duration(e.IntervalTime) * time.Millisecond,
			InteractionKey:    e.InteractionKey,
			SkipOnInteraction: e.SkipOnClick,
			Screen:            e.Screen,
		},
		BaseDir: baseDir,
	}, nil
}

// FromExperiment converts a model.Experiment to its file form. Image paths
// inside exp.BaseDir are written relative to it.
func FromExperiment(exp *model.Experiment) *Experiment {
	out := &Experiment{
		Name:           exp.Name,
		ShowTime:       int(exp.Presentation.ShowTime / time.Millisecond),
		IntervalTime:   int(exp.Presentation.IntervalTime / time.Millisecond),
		InteractionKey: exp.Presentation.InteractionKey,
		SkipOnClick:    exp.Presentation.SkipOnInteraction,
		Screen:         exp.Presentation.Screen,
	}
	cfg := exp.Config
	if cfg == nil {
		return out
	}

	out.IntergroupOrder = cfg.IntergroupOrder.String()
	out.IntragroupOrder = cfg.IntragroupOrder.String()
	out.IntergroupBehaviour = cfg.IntergroupBehaviour.String()
	out.RateBehaviour = cfg.RateBehaviour.String()
	out.AllowImageRepeat = cfg.AllowImageRepeat
	out.AmountOfExhibitions = cfg.AmountOfExhibitions

	for _, g := range cfg.Groups {
		rate := g.Rate
		jg := Group{ID: g.ID, Name: g.Name, Rate: &rate}
		for _, img := range g.Images {
			imgRate := img.Rate
			jg.Images = append(jg.Images, Image{
				ID:   img.ID,
				File: relativeTo(exp.BaseDir, img.File),
				Rate: &imgRate,
			})
		}
		out.Groups = append(out.Groups, jg)
	}
	return out
}

func relativeTo(base, file string) string {
	if base == "" || !filepath.IsAbs(file) {
		return filepath.ToSlash(file)
	}
	rel, err := filepath.Rel(base, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(file)
	}
	return filepath.ToSlash(rel)
}
