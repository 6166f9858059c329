package domain

// Contact is a message submitted through the public contact form.
type Contact struct {
	BaseModel
	Name    string `gorm:"column:name;size:255;not null" json:"name"`
	Email   string `gorm:"column:email;size:255;not null" json:"email"`
	Subject string `gorm:"column:subject;size:255;not null" json:"subject"`
	Message string `gorm:"column:message;size:1000;not null" json:"message"`
	Terms   bool   `gorm:"column:terms;not null" json:"terms"`
}

// TableName pins the table name used by the existing schema.
func (Contact) TableName() string {
	return "contacts"
}
