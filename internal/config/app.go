package config

type AppConfig struct {
	Server   ServerConfig
	WS       WSConfig
	Log      LogConfig
	Defaults SessionDefaults
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	wsCfg, err := LoadWS()
	if err != nil {
		return AppConfig{}, err
	}
	defaults, err := LoadSessionDefaults(serverCfg.SessionDefaultsPath)
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server:   serverCfg,
		WS:       wsCfg,
		Log:      logCfg,
		Defaults: defaults,
	}, nil
}
