package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	busName      = "org.bluez"
	adapterPath  = "/org/bluez/hci0"
	adapterIface = "org.bluez.Adapter1"
	deviceIface  = "org.bluez.Device1"
	propsIface   = "org.freedesktop.DBus.Properties"
)

// deviceObjectPath converts a MAC address like "AA:BB:CC:DD:EE:FF" to
// "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF".
func deviceObjectPath(addr string) dbus.ObjectPath {
	escaped := strings.ReplaceAll(addr, ":", "_")
	return dbus.ObjectPath(adapterPath + "/dev_" + escaped)
}

// bluez wraps a system D-Bus connection for BlueZ operations.
type bluez struct {
	conn *dbus.Conn
}

func newBluez() (*bluez, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	// Quick check that BlueZ is on the bus.
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("list bus names: %w", err)
	}
	found := false
	for _, n := range names {
		if n == busName {
			found = true
			break
		}
	}
	if !found {
		conn.Close()
		return nil, fmt.Errorf("org.bluez not found on system bus — is bluetooth.service running?")
	}
	return &bluez{conn: conn}, nil
}

func (b *bluez) close() {
	b.conn.Close()
}

// --- property helpers ---

func (b *bluez) getProp(path dbus.ObjectPath, iface, prop string) (dbus.Variant, error) {
	obj := b.conn.Object(busName, path)
	var v dbus.Variant
	err := obj.Call(propsIface+".Get", 0, iface, prop).Store(&v)
	return v, err
}

func (b *bluez) getBool(path dbus.ObjectPath, iface, prop string) (bool, error) {
	v, err := b.getProp(path, iface, prop)
	if err != nil {
		return false, err
	}
	val, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("property %s is not bool", prop)
	}
	return val, nil
}

func (b *bluez) getString(path dbus.ObjectPath, iface, prop string) (string, error) {
	v, err := b.getProp(path, iface, prop)
	if err != nil {
		return "", err
	}
	val, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("property %s is not string", prop)
	}
	return val, nil
}

// --- adapter ---

func (b *bluez) adapterPowered() (bool, error) {
	return b.getBool(adapterPath, adapterIface, "Powered")
}

// --- device ---

func (b *bluez) deviceConnected(addr string) (bool, error) {
	return b.getBool(deviceObjectPath(addr), deviceIface, "Connected")
}

func (b *bluez) devicePaired(addr string) (bool, error) {
	return b.getBool(deviceObjectPath(addr), deviceIface, "Paired")
}

func (b *bluez) deviceAlias(addr string) (string, error) {
	return b.getString(deviceObjectPath(addr), deviceIface, "Alias")
}

func (b *bluez) connect(addr string) error {
	obj := b.conn.Object(busName, deviceObjectPath(addr))
	return obj.Call(deviceIface+".Connect", 0).Err
}

// errAdapterOff means the local adapter is powered down, so no RFCOMM dial
// can possibly succeed.
var errAdapterOff = errors.New("bluetooth adapter is powered off")

// preflight verifies the adapter is usable and brings the device's baseband
// link up before the RFCOMM dial. An unpaired or unknown device is not
// fatal (the headset may still accept a direct connection), but a powered-off
// adapter is. Returns the device's alias when BlueZ knows it, for friendlier
// log output.
func (b *bluez) preflight(addr string) (alias string, err error) {
	powered, err := b.adapterPowered()
	if err != nil {
		return "", fmt.Errorf("query adapter: %w", err)
	}
	if !powered {
		return "", errAdapterOff
	}

	paired, err := b.devicePaired(addr)
	if err != nil || !paired {
		// Unknown to BlueZ; leave the rest to the raw socket connect.
		return "", nil
	}
	alias, _ = b.deviceAlias(addr)

	connected, err := b.deviceConnected(addr)
	if err == nil && !connected {
		if err := b.connect(addr); err != nil {
			return alias, fmt.Errorf("connect %s via BlueZ: %w", addr, err)
		}
	}
	return alias, nil
}
