package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/badgelink/badgelink-go/pkg/wire"
	"github.com/enbility/zeroconf/v3"
)

// MDNSAdvertiser registers one badge service using zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
	info   BadgeInfo
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	return &MDNSAdvertiser{config: config}
}

// getInterfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func getInterfaces(name string) []net.Interface {
	if name == "" {
		return nil
	}

	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Advertise starts advertising info. An empty Name uses InstanceName of the
// address and a zero Port uses DefaultPort.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, info *BadgeInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return ErrAlreadyAdvertised
	}
	if info.Address.IsZero() || info.Address.IsBroadcast() {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, info.Address)
	}

	adv := *info
	if adv.Name == "" {
		adv.Name = InstanceName(adv.Address)
	}
	if err := ValidateInstanceName(adv.Name); err != nil {
		return err
	}
	if adv.Port == 0 {
		adv.Port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		adv.Name,
		ServiceType,
		Domain,
		int(adv.Port),
		TXTRecordsToStrings(EncodeBadgeTXT(&adv)),
		getInterfaces(a.config.Interface),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register badge service: %w", err)
	}

	a.server = server
	a.info = adv
	return nil
}

// Update replaces the advertised state and partner. A zero partner removes
// the partner field.
func (a *MDNSAdvertiser) Update(state string, partner wire.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return ErrNotAdvertising
	}
	a.info.State = state
	a.info.Partner = partner
	a.server.SetText(TXTRecordsToStrings(EncodeBadgeTXT(&a.info)))
	return nil
}

// Info returns what is currently advertised.
func (a *MDNSAdvertiser) Info() (BadgeInfo, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.info, a.server != nil
}

// Stop stops advertising.
func (a *MDNSAdvertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// MDNSBrowser finds badges using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	return &MDNSBrowser{config: config}
}

// Browse searches for badges until ctx is done. Services are aggregated by
// instance name: addresses from multiple interfaces are combined into a
// single entry, and an entry is emitted again when its TXT record changes.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *BadgeService, error) {
	out := make(chan *BadgeService)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		services := make(map[string]*BadgeService)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToBadge(entry)
				if svc == nil {
					continue
				}

				existing, found := services[svc.InstanceName]
				if found {
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
					if existing.BadgeInfo == svc.BadgeInfo {
						continue
					}
					existing.BadgeInfo = svc.BadgeInfo
				} else {
					services[svc.InstanceName] = svc
					existing = svc
				}
				snapshot := *existing
				snapshot.Addresses = append([]string(nil), existing.Addresses...)
				select {
				case out <- &snapshot:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				// Remove addresses that came from this interface
				if existing, found := services[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entry)
					if len(existing.Addresses) == 0 {
						delete(services, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.browserOptions()...)
	}()

	return out, nil
}

// FindAll browses for the configured timeout and returns every badge seen,
// keyed by radio address.
func (b *MDNSBrowser) FindAll(ctx context.Context) (map[string]*BadgeService, error) {
	timeout := b.config.Timeout
	if timeout <= 0 {
		timeout = DefaultBrowserConfig().Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	found := make(map[string]*BadgeService)
	for svc := range ch {
		found[svc.Address.String()] = svc
	}
	return found, nil
}

func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if ifaces := getInterfaces(b.config.Interface); ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}
	return opts
}

// entryToBadge converts a zeroconf entry to a BadgeService.
func entryToBadge(entry *zeroconf.ServiceEntry) *BadgeService {
	txt := StringsToTXTRecords(entry.Text)
	info, err := DecodeBadgeTXT(txt)
	if err != nil {
		return nil
	}
	info.Name = entry.Instance
	info.Port = uint16(entry.Port)

	// Collect addresses
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &BadgeService{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    addrs,
		BadgeInfo:    *info,
	}
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes addresses from a zeroconf entry from the list.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
