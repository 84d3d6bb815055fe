package kpi

import "time"

// Pillar is a qualitative evaluation category of the 4-pillar radar.
type Pillar string

const (
	PillarPessoas     Pillar = "pessoas"     // people
	PillarPerformance Pillar = "performance" // scored by ScoreStore
	PillarAmbientacao Pillar = "ambientacao" // store environment
	PillarDigital     Pillar = "digital"
)

// Pillars lists the radar axes in display order.
var Pillars = []Pillar{PillarPessoas, PillarPerformance, PillarAmbientacao, PillarDigital}

// Valid reports whether p is a known pillar.
func (p Pillar) Valid() bool {
	for _, known := range Pillars {
		if p == known {
			return true
		}
	}
	return false
}

type EvaluationStatus string

const (
	EvaluationPending  EvaluationStatus = "pending"
	EvaluationApproved EvaluationStatus = "approved"
	EvaluationRejected EvaluationStatus = "rejected"
)

// Evaluation is a form-based collaborator evaluation for one pillar. Only
// approved evaluations count toward pillar scores.
type Evaluation struct {
	ID             string
	StoreID        StoreID
	CollaboratorID string
	Pillar         Pillar
	Period         Period
	Score          float64
	Status         EvaluationStatus
	Notes          string
	CreatedAt      time.Time
	ReviewedAt     *time.Time
}
