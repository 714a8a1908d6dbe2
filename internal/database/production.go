package database

import (
	"time"

	"gorm.io/gorm"
)

// Production records carry their derived figures (totals, yield, waste rate)
// computed once in BeforeSave; readers treat them as immutable facts.

// ProductionExtrusion is one shift report for an extrusion zone
type ProductionExtrusion struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ProductionDate time.Time `gorm:"not null;index:idx_extrusion_zone_date" json:"production_date"`
	ZoneID         uint      `gorm:"not null;index:idx_extrusion_zone_date" json:"zone_id"`
	Shift          string    `gorm:"size:50" json:"shift"`
	StartTime      string    `gorm:"size:5" json:"start_time"`
	EndTime        string    `gorm:"size:5" json:"end_time"`

	RawMaterialKg  float64 `gorm:"type:decimal(10,2)" json:"raw_material_kg"`
	ActiveMachines int     `json:"active_machines"`
	Operators      int     `json:"operators"`
	CoilsKg        float64 `gorm:"type:decimal(10,2)" json:"coils_kg"`
	FinishedKg     float64 `gorm:"type:decimal(10,2)" json:"finished_kg"`
	SemiFinishedKg float64 `gorm:"type:decimal(10,2)" json:"semi_finished_kg"`
	WasteKg        float64 `gorm:"type:decimal(10,2)" json:"waste_kg"`

	TotalOutputKg    float64 `gorm:"type:decimal(10,2)" json:"total_output_kg"`
	YieldPercent     float64 `gorm:"type:decimal(10,2)" json:"yield_percent"`
	WastePercent     float64 `gorm:"type:decimal(10,2)" json:"waste_percent"`
	OutputPerMachine float64 `gorm:"type:decimal(10,2)" json:"output_per_machine"`

	Validated bool      `gorm:"default:false" json:"validated"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Zone Zone `gorm:"foreignKey:ZoneID" json:"-"`
}

func (ProductionExtrusion) TableName() string {
	return "production_extrusion"
}

// BeforeSave computes the derived figures
func (p *ProductionExtrusion) BeforeSave(tx *gorm.DB) error {
	p.TotalOutputKg = p.FinishedKg + p.SemiFinishedKg
	p.YieldPercent = 0
	if p.RawMaterialKg > 0 {
		p.YieldPercent = p.TotalOutputKg / p.RawMaterialKg * 100
	}
	p.WastePercent = wasteRate(p.WasteKg, p.TotalOutputKg)
	p.OutputPerMachine = 0
	if p.ActiveMachines > 0 {
		p.OutputPerMachine = p.TotalOutputKg / float64(p.ActiveMachines)
	}
	return nil
}

// HasYield is false when no raw material was recorded, leaving yield undefined
func (p *ProductionExtrusion) HasYield() bool {
	return p.RawMaterialKg > 0
}

// ProductionPrinting is one report for the printing section
type ProductionPrinting struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ProductionDate time.Time `gorm:"not null;index" json:"production_date"`
	StartTime      string    `gorm:"size:5" json:"start_time"`
	EndTime        string    `gorm:"size:5" json:"end_time"`
	ActiveMachines int       `json:"active_machines"`

	FinishedKg     float64 `gorm:"type:decimal(10,2)" json:"finished_kg"`
	SemiFinishedKg float64 `gorm:"type:decimal(10,2)" json:"semi_finished_kg"`
	WasteKg        float64 `gorm:"type:decimal(10,2)" json:"waste_kg"`

	TotalOutputKg float64 `gorm:"type:decimal(10,2)" json:"total_output_kg"`
	WastePercent  float64 `gorm:"type:decimal(10,2)" json:"waste_percent"`

	Validated bool      `gorm:"default:false" json:"validated"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProductionPrinting) TableName() string {
	return "production_printing"
}

// BeforeSave computes the derived figures
func (p *ProductionPrinting) BeforeSave(tx *gorm.DB) error {
	p.TotalOutputKg = p.FinishedKg + p.SemiFinishedKg
	p.WastePercent = wasteRate(p.WasteKg, p.TotalOutputKg)
	return nil
}

// ProductionWelding is one report for the welding section
type ProductionWelding struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ProductionDate time.Time `gorm:"not null;index" json:"production_date"`
	StartTime      string    `gorm:"size:5" json:"start_time"`
	EndTime        string    `gorm:"size:5" json:"end_time"`
	ActiveMachines int       `json:"active_machines"`

	FinishedKg float64 `gorm:"type:decimal(10,2)" json:"finished_kg"`
	StrapsKg   float64 `gorm:"type:decimal(10,2)" json:"straps_kg"`
	RemaKg     float64 `gorm:"type:decimal(10,2)" json:"rema_kg"`
	BattaKg    float64 `gorm:"type:decimal(10,2)" json:"batta_kg"`
	BagsKg     float64 `gorm:"type:decimal(10,2)" json:"bags_kg"`
	WasteKg    float64 `gorm:"type:decimal(10,2)" json:"waste_kg"`

	SpecificOutputKg float64 `gorm:"type:decimal(10,2)" json:"specific_output_kg"`
	TotalOutputKg    float64 `gorm:"type:decimal(10,2)" json:"total_output_kg"`
	WastePercent     float64 `gorm:"type:decimal(10,2)" json:"waste_percent"`

	Validated bool      `gorm:"default:false" json:"validated"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProductionWelding) TableName() string {
	return "production_welding"
}

// BeforeSave computes the derived figures
func (p *ProductionWelding) BeforeSave(tx *gorm.DB) error {
	p.SpecificOutputKg = p.StrapsKg + p.RemaKg + p.BattaKg + p.BagsKg
	p.TotalOutputKg = p.FinishedKg + p.SpecificOutputKg
	p.WastePercent = wasteRate(p.WasteKg, p.TotalOutputKg)
	return nil
}

// ProductionRecycling is one report for the recycling section
type ProductionRecycling struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ProductionDate time.Time `gorm:"not null;index" json:"production_date"`
	Shift          string    `gorm:"size:50" json:"shift"`
	Mills          int       `json:"mills"`

	GrindingKg  float64 `gorm:"type:decimal(10,2)" json:"grinding_kg"`
	BlackTarpKg float64 `gorm:"type:decimal(10,2)" json:"black_tarp_kg"`

	TotalOutputKg         float64 `gorm:"type:decimal(10,2)" json:"total_output_kg"`
	OutputPerMill         float64 `gorm:"type:decimal(10,2)" json:"output_per_mill"`
	TransformationPercent float64 `gorm:"type:decimal(10,2)" json:"transformation_percent"`

	Validated bool      `gorm:"default:false" json:"validated"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProductionRecycling) TableName() string {
	return "production_recycling"
}

// BeforeSave computes the derived figures
func (p *ProductionRecycling) BeforeSave(tx *gorm.DB) error {
	p.TotalOutputKg = p.GrindingKg + p.BlackTarpKg
	p.OutputPerMill = 0
	if p.Mills > 0 {
		p.OutputPerMill = p.TotalOutputKg / float64(p.Mills)
	}
	p.TransformationPercent = 0
	if p.GrindingKg > 0 {
		p.TransformationPercent = p.BlackTarpKg / p.GrindingKg * 100
	}
	return nil
}

// wasteRate is waste as a share of everything that left the line
func wasteRate(waste, output float64) float64 {
	if output+waste <= 0 {
		return 0
	}
	return waste / (output + waste) * 100
}
