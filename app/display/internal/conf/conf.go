package conf

import "github.com/iWorld-y/signal_radar/app/signal_radar/pkg/config"

type Bootstrap struct {
	Server *Server
	Data   *Data
}

type Server struct {
	Http *HTTP
}

type HTTP struct {
	Addr    string
	Timeout string
}

type Data struct {
	Database *Database
}

// Database 与批处理共用同一个库
type Database struct {
	Driver   string `json:"driver"`
	Host     string `json:"host"`
	Port     int32  `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Path     string `json:"path"`
}

// DBConfig 转换为存储层配置
func (d *Database) DBConfig() config.DBConfig {
	return config.DBConfig{
		Driver:   d.Driver,
		Host:     d.Host,
		Port:     int(d.Port),
		User:     d.User,
		Password: d.Password,
		Name:     d.Name,
		Path:     d.Path,
	}
}
