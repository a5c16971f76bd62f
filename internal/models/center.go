package models

type MedicalCenter struct {
	CenterID string `json:"center_id"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Active   bool   `json:"active"`
}

type Doctor struct {
	DoctorID  string `json:"doctor_id"`
	CenterID  string `json:"center_id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
	Active    bool   `json:"active"`
}
