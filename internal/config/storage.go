package config

import "fmt"

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Storage описывает базу, где хранятся токены пользователей бота
type Storage struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`

	// Для mysql, если dsn не указан
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       string `yaml:"db"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Params   string `yaml:"params"`
}

// Dsn возвращает строку подключения для выбранного драйвера
func (s Storage) Dsn() string {
	if s.DSN != "" || s.Driver != DriverMySQL {
		return s.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", s.User, s.Password, s.Host, s.Port, s.DB, s.Params)
}
