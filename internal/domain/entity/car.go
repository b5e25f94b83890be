package entity

// Car is an immutable fleet reference record. The fleet list is loaded once
// at startup and is never created, updated or deleted by this service.
type Car struct {
	Plate string `bson:"plate" json:"plate" csv:"plate" gorm:"column:plate"`
	Model string `bson:"model" json:"model" csv:"model" gorm:"column:model"`
}
