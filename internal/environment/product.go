package environment

// ProductInfo identifies this installation.
type ProductInfo struct {
	Product  string `json:"product" yaml:"product"`
	Version  string `json:"version" yaml:"version"`
	Home     string `json:"home" yaml:"home"`
	Host     string `json:"host" yaml:"host"`
	SystemID string `json:"system_id" yaml:"system_id"`
}

func (p *Probe) ProductInfo() ProductInfo {
	return ProductInfo{
		Product:  p.Config.ProductName,
		Version:  p.Config.Version,
		Home:     p.Config.Home,
		Host:     p.Config.FQDN,
		SystemID: p.Config.SystemID,
	}
}
