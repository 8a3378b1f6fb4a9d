package port

// defaultEntries is the published probe list. Order is part of the report
// format and must not be sorted.
var defaultEntries = []Entry{
	// infrastructure & remote access
	{21, "FTP"},
	{22, "SSH"},
	{23, "Telnet"},
	{25, "SMTP"},
	{53, "DNS"},
	{80, "HTTP"},
	{110, "POP3"},
	{135, "RPC"},
	{139, "NetBIOS"},
	{143, "IMAP"},
	{443, "HTTPS"},
	{445, "SMB"},
	{587, "SMTP-Submission"},
	{993, "IMAPS"},
	{995, "POP3S"},

	// databases
	{1433, "MSSQL"},
	{3306, "MySQL"},
	{5432, "PostgreSQL"},
	{6379, "Redis"},
	{27017, "MongoDB"},

	// remote desktop & virtualization
	{3389, "RDP"},
	{5900, "VNC"},
	{5901, "VNC-1"},
	{8000, "HTTP-Dev"},
	{8080, "HTTP-Proxy"},
	{8443, "HTTPS-Alt"},
	{8888, "HTTP-Alt"},
	{9000, "Portainer"},

	// industrial & IoT
	{1883, "MQTT"},
	{5000, "Flask"},
	{8081, "IPCam"},
	{8899, "ONVIF"},
	{10000, "Webmin"},
}

var defaultCatalog = Catalog{entries: defaultEntries}

// Default returns the built-in catalog.
func Default() Catalog {
	return defaultCatalog
}
