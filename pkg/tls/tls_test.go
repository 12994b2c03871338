package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dd0wney/cluso-mapeditor/pkg/config"
)

func writePair(t *testing.T, hosts ...string) (certFile, keyFile string) {
	t.Helper()
	certPEM, keyPEM, err := selfSignedPEM(hosts, time.Hour)
	if err != nil {
		t.Fatalf("selfSignedPEM failed: %v", err)
	}
	dir := t.TempDir()
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certFile, certPEM, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}

func TestLoad_Disabled(t *testing.T) {
	cfg, err := Load(config.TLSConfig{CertFile: "ignored.pem"})
	if err != nil || cfg != nil {
		t.Errorf("Expected nil config for disabled TLS, got %v, %v", cfg, err)
	}
}

func TestLoad_SelfSigned(t *testing.T) {
	cfg, err := Load(config.TLSConfig{Enabled: true, SelfSigned: true, Hosts: []string{"editor.local", "10.0.0.5"}})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x, want TLS 1.2", cfg.MinVersion)
	}
	if cfg.ClientAuth != tls.NoClientCert {
		t.Errorf("Expected no client auth without a CA, got %v", cfg.ClientAuth)
	}

	leaf, err := x509.ParseCertificate(cfg.Certificates[0].Certificate[0])
	if err != nil {
		t.Fatalf("ParseCertificate failed: %v", err)
	}
	if len(leaf.DNSNames) != 1 || leaf.DNSNames[0] != "editor.local" {
		t.Errorf("DNSNames = %v", leaf.DNSNames)
	}
	if len(leaf.IPAddresses) != 1 || leaf.IPAddresses[0].String() != "10.0.0.5" {
		t.Errorf("IPAddresses = %v", leaf.IPAddresses)
	}
	if err := leaf.VerifyHostname("editor.local"); err != nil {
		t.Errorf("VerifyHostname: %v", err)
	}
}

func TestLoad_FromFiles(t *testing.T) {
	certFile, keyFile := writePair(t, "localhost")

	cfg, err := Load(config.TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("Expected one certificate, got %d", len(cfg.Certificates))
	}
}

func TestLoad_ClientCA(t *testing.T) {
	certFile, keyFile := writePair(t, "localhost")

	cfg, err := Load(config.TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile, ClientCAFile: certFile})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ClientCAs == nil || cfg.ClientAuth != tls.VerifyClientCertIfGiven {
		t.Errorf("Expected client verification, got %v", cfg.ClientAuth)
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(config.TLSConfig{Enabled: true})
	if !errors.Is(err, ErrNoCertificate) {
		t.Errorf("Expected ErrNoCertificate, got %v", err)
	}

	_, err = Load(config.TLSConfig{Enabled: true, CertFile: "/missing/cert.pem", KeyFile: "/missing/key.pem"})
	if err == nil {
		t.Error("Expected error for missing key pair")
	}

	certFile, keyFile := writePair(t)
	bogus := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(bogus, []byte("not pem"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err = Load(config.TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile, ClientCAFile: bogus})
	if err == nil {
		t.Error("Expected error for CA file without certificates")
	}
}

func TestGenerateSelfSigned_DefaultHosts(t *testing.T) {
	cert, err := GenerateSelfSigned(nil, time.Hour)
	if err != nil {
		t.Fatalf("GenerateSelfSigned failed: %v", err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatal(err)
	}
	if err := leaf.VerifyHostname("localhost"); err != nil {
		t.Errorf("Default certificate should cover localhost: %v", err)
	}
	if err := leaf.VerifyHostname("127.0.0.1"); err != nil {
		t.Errorf("Default certificate should cover 127.0.0.1: %v", err)
	}
	if time.Until(leaf.NotAfter) > time.Hour {
		t.Errorf("NotAfter %v beyond requested validity", leaf.NotAfter)
	}
}
