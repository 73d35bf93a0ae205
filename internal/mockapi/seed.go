package mockapi

import "encoding/json"

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func jsonList(v []string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// Seed заполняет пустую базу демо-данными: преподаватель teacher/teacher,
// студент student/student и две категории с вопросами.
func (s *Server) Seed() error {
	var n int64
	if err := s.db.Model(&User{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	if _, err := s.CreateUser("teacher", "Teacher", "teacher", RoleTeacher); err != nil {
		return err
	}
	if _, err := s.CreateUser("student", "Student One", "student", RoleStudent); err != nil {
		return err
	}

	hardware := Category{Name: "Hardware"}
	networks := Category{Name: "Networks"}
	if err := s.db.Create(&hardware).Error; err != nil {
		return err
	}
	if err := s.db.Create(&networks).Error; err != nil {
		return err
	}

	questions := []Question{
		{
			Question:           "Which component is measured in GHz?",
			Options:            jsonList([]string{"Hard disk", "Processor", "RAM", "Power supply"}),
			CorrectAnswerIndex: intPtr(1),
			CategoryID:         hardware.ID,
		},
		{
			Question:           "Adapter cards slide into ____.",
			Options:            jsonList([]string{"Power slots", "PCIe slots", "Processor slots", "Memory slots"}),
			CorrectAnswerIndex: intPtr(1),
			CategoryID:         hardware.ID,
		},
		{
			Question:          "What does the abbreviation RAM stand for?",
			CorrectTextAnswer: strPtr("Random Access Memory"),
			CategoryID:        hardware.ID,
		},
		{
			Question:           "If you want to assign IP addresses dynamically, what protocol can you use?",
			Options:            jsonList([]string{"DHCP", "NTP", "Kerberos", "TFTP"}),
			CorrectAnswerIndex: intPtr(0),
			CategoryID:         networks.ID,
		},
		{
			Question:          "Which device connects geographically separated networks: router or switch?",
			CorrectTextAnswer: strPtr("router"),
			CategoryID:        networks.ID,
		},
	}
	return s.db.Omit("Category").Create(&questions).Error
}
