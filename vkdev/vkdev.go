// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package vkdev implements the present.Device interface using
// the Vulkan API.
//
// A Device owns the Vulkan instance, the surface of a single
// window, the physical/logical device pair, the graphics and
// presentation queues and a command pool. Objects handed out
// through present.Device methods are identified by opaque
// tokens; the Vulkan handles behind them stay inside this
// package except for the few accessors the rendering layer
// needs to record commands.
//
// Device methods are not safe for concurrent use. The frame
// loop owns the device.
package vkdev

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"

	"gviegas/neo2/present"
	"gviegas/neo2/wsi"
)

// Errors returned by Open.
var (
	// ErrNoDevice means that no Vulkan device able to render
	// to the window's surface was found.
	ErrNoDevice = errors.New("vkdev: no suitable device")

	// ErrValidation means that validation layers were
	// requested but are not installed.
	ErrValidation = errors.New("vkdev: validation layers unavailable")
)

// validationLayers are the layers that Options.Validation
// enables.
var validationLayers = []string{
	"VK_LAYER_KHRONOS_validation\x00",
}

// deviceExtensions are the extensions a physical device must
// support to be selected.
var deviceExtensions = []string{
	vk.KhrSwapchainExtensionName + "\x00",
}

// Options configures Open.
type Options struct {
	// AppName names the application to the driver.
	AppName string
	// Validation enables the Khronos validation layer.
	Validation bool
}

// Device implements present.Device on a Vulkan device.
// Open creates it for a single window; rendering into other
// windows requires other Devices.
type Device struct {
	inst  vk.Instance
	sf    vk.Surface
	pdev  vk.PhysicalDevice
	dname string
	gfam  int
	pfam  int
	dev   vk.Device
	gque  vk.Queue
	pque  vk.Queue
	pool  vk.CommandPool

	// Objects handed out as tokens.
	next   uint64
	scs    map[present.Swapchain]vk.Swapchain
	scImgs map[present.Swapchain][]present.Image
	imgs   map[present.Image]vk.Image
	views  map[present.View]vk.ImageView
	sems   map[present.Semaphore]vk.Semaphore
	fences map[present.Fence]vk.Fence
	cmds   map[present.CmdBuffer]vk.CommandBuffer
}

// Open creates a Device able to present to win.
// wsi.Init must have succeeded beforehand.
func Open(win *wsi.Window, opt Options) (dev *Device, err error) {
	d := &Device{
		scs:    map[present.Swapchain]vk.Swapchain{},
		scImgs: map[present.Swapchain][]present.Image{},
		imgs:   map[present.Image]vk.Image{},
		views:  map[present.View]vk.ImageView{},
		sems:   map[present.Semaphore]vk.Semaphore{},
		fences: map[present.Fence]vk.Fence{},
		cmds:   map[present.CmdBuffer]vk.CommandBuffer{},
	}
	if err = d.initInstance(win, &opt); err != nil {
		goto fail
	}
	if err = d.initSurface(win); err != nil {
		goto fail
	}
	if err = d.initDevice(); err != nil {
		goto fail
	}
	if err = d.initPool(); err != nil {
		goto fail
	}
	return d, nil
fail:
	d.Close()
	return nil, err
}

// initInstance creates the Vulkan instance with the
// extensions that surface creation requires.
func (d *Device) initInstance(win *wsi.Window, opt *Options) error {
	var layers []string
	if opt.Validation {
		if !haveLayers(validationLayers) {
			return ErrValidation
		}
		layers = validationLayers
	}
	name := opt.AppName
	if name == "" {
		name = "neo2"
	}
	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   name + "\x00",
		ApplicationVersion: vk.MakeVersion(0, 1, 0),
		PEngineName:        "neo2\x00",
		EngineVersion:      vk.MakeVersion(0, 1, 0),
		ApiVersion:         vk.MakeVersion(1, 0, 0),
	}
	exts := win.RequiredExtensions()
	info := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}
	var inst vk.Instance
	if err := vk.Error(vk.CreateInstance(&info, nil, &inst)); err != nil {
		return fmt.Errorf("vkdev: instance creation: %w", err)
	}
	d.inst = inst
	vk.InitInstance(inst)
	return nil
}

// haveLayers reports whether every layer in want is installed.
func haveLayers(want []string) bool {
	var n uint32
	if vk.EnumerateInstanceLayerProperties(&n, nil) != vk.Success {
		return false
	}
	props := make([]vk.LayerProperties, n)
	if vk.EnumerateInstanceLayerProperties(&n, props) != vk.Success {
		return false
	}
	have := make(map[string]bool, n)
	for _, p := range props {
		p.Deref()
		have[vk.ToString(p.LayerName[:])+"\x00"] = true
	}
	for _, w := range want {
		if !have[w] {
			return false
		}
	}
	return true
}

// initSurface creates the presentation surface for win.
func (d *Device) initSurface(win *wsi.Window) error {
	sf, err := win.CreateSurface(d.inst)
	if err != nil {
		return err
	}
	d.sf = sf
	return nil
}

// initDevice selects a physical device able to render to the
// surface and creates the logical device and its queues.
// Discrete GPUs are favored; devices that lack a graphics or
// presentation queue family, the swap chain extension, or any
// usable surface format or present mode are rejected outright,
// so presentation support failures after selection indicate a
// driver defect.
func (d *Device) initDevice() error {
	var n uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(d.inst, &n, nil)); err != nil {
		return fmt.Errorf("vkdev: device enumeration: %w", err)
	}
	if n == 0 {
		return ErrNoDevice
	}
	pdevs := make([]vk.PhysicalDevice, n)
	if err := vk.Error(vk.EnumeratePhysicalDevices(d.inst, &n, pdevs)); err != nil {
		return fmt.Errorf("vkdev: device enumeration: %w", err)
	}

	best := -1
	for _, pd := range pdevs {
		gfam, pfam, ok := d.queueFamiliesOf(pd)
		if !ok || !haveDeviceExts(pd) || !canPresent(pd, d.sf) {
			continue
		}
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &props)
		props.Deref()
		score := 1
		if props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			score += 1000
		}
		if score > best {
			best = score
			d.pdev = pd
			d.dname = vk.ToString(props.DeviceName[:])
			d.gfam = gfam
			d.pfam = pfam
		}
	}
	if best < 0 {
		return ErrNoDevice
	}

	// One queue per distinct family.
	fams := []int{d.gfam}
	if d.pfam != d.gfam {
		fams = append(fams, d.pfam)
	}
	qinfos := make([]vk.DeviceQueueCreateInfo, len(fams))
	for i, fam := range fams {
		qinfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(fam),
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}
	info := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(qinfos)),
		PQueueCreateInfos:       qinfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(deviceExtensions)),
		PpEnabledExtensionNames: deviceExtensions,
	}
	var dev vk.Device
	if err := vk.Error(vk.CreateDevice(d.pdev, &info, nil, &dev)); err != nil {
		return fmt.Errorf("vkdev: device creation: %w", err)
	}
	d.dev = dev
	var que vk.Queue
	vk.GetDeviceQueue(d.dev, uint32(d.gfam), 0, &que)
	d.gque = que
	vk.GetDeviceQueue(d.dev, uint32(d.pfam), 0, &que)
	d.pque = que
	return nil
}

// queueFamiliesOf returns the first graphics queue family of
// pd and a family able to present to the surface. The
// graphics family is preferred for presentation when it
// qualifies, which keeps swap chain images exclusive.
func (d *Device) queueFamiliesOf(pd vk.PhysicalDevice) (graphics, present int, ok bool) {
	var n uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &n, nil)
	fams := make([]vk.QueueFamilyProperties, n)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &n, fams)
	graphics = -1
	for i := range fams {
		fams[i].Deref()
		if fams[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			graphics = i
			break
		}
	}
	if graphics < 0 {
		return -1, -1, false
	}
	for i := 0; i < int(n); i++ {
		fam := (graphics + i) % int(n)
		var sup vk.Bool32
		res := vk.GetPhysicalDeviceSurfaceSupport(pd, uint32(fam), d.sf, &sup)
		if res == vk.Success && sup.B() {
			return graphics, fam, true
		}
	}
	return -1, -1, false
}

// haveDeviceExts reports whether pd supports every extension
// in deviceExtensions.
func haveDeviceExts(pd vk.PhysicalDevice) bool {
	var n uint32
	if vk.EnumerateDeviceExtensionProperties(pd, "", &n, nil) != vk.Success {
		return false
	}
	props := make([]vk.ExtensionProperties, n)
	if vk.EnumerateDeviceExtensionProperties(pd, "", &n, props) != vk.Success {
		return false
	}
	missing := make(map[string]bool, len(deviceExtensions))
	for _, e := range deviceExtensions {
		missing[e] = true
	}
	for _, p := range props {
		p.Deref()
		delete(missing, vk.ToString(p.ExtensionName[:])+"\x00")
	}
	return len(missing) == 0
}

// canPresent reports whether pd exposes at least one surface
// format and one present mode for sf.
func canPresent(pd vk.PhysicalDevice, sf vk.Surface) bool {
	var nf uint32
	if vk.GetPhysicalDeviceSurfaceFormats(pd, sf, &nf, nil) != vk.Success {
		return false
	}
	var nm uint32
	if vk.GetPhysicalDeviceSurfacePresentModes(pd, sf, &nm, nil) != vk.Success {
		return false
	}
	return nf > 0 && nm > 0
}

// initPool creates the command pool that every command buffer
// of the Device allocates from.
func (d *Device) initPool() error {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: uint32(d.gfam),
	}
	var pool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(d.dev, &info, nil, &pool)); err != nil {
		return fmt.Errorf("vkdev: command pool creation: %w", err)
	}
	d.pool = pool
	return nil
}

// Close destroys the Device and every object it still tracks,
// waiting for the device to go idle first.
func (d *Device) Close() {
	if d == nil {
		return
	}
	if d.dev != vk.Device(vk.NullHandle) {
		vk.DeviceWaitIdle(d.dev)
		for _, v := range d.views {
			vk.DestroyImageView(d.dev, v, nil)
		}
		for _, sem := range d.sems {
			vk.DestroySemaphore(d.dev, sem, nil)
		}
		for _, f := range d.fences {
			vk.DestroyFence(d.dev, f, nil)
		}
		for _, sc := range d.scs {
			vk.DestroySwapchain(d.dev, sc, nil)
		}
		if d.pool != vk.CommandPool(vk.NullHandle) {
			// Frees every command buffer as well.
			vk.DestroyCommandPool(d.dev, d.pool, nil)
		}
		vk.DestroyDevice(d.dev, nil)
	}
	if d.inst != vk.Instance(vk.NullHandle) {
		if d.sf != vk.NullSurface {
			vk.DestroySurface(d.inst, d.sf, nil)
		}
		vk.DestroyInstance(d.inst, nil)
	}
	*d = Device{}
}

// token returns the next unused object token.
func (d *Device) token() uint64 {
	d.next++
	return d.next
}

// Name returns the name of the selected physical device.
func (d *Device) Name() string { return d.dname }

// Handle returns the Vulkan device handle.
func (d *Device) Handle() vk.Device { return d.dev }

// Physical returns the Vulkan physical device handle.
func (d *Device) Physical() vk.PhysicalDevice { return d.pdev }

// GraphicsQueue returns the graphics queue handle.
func (d *Device) GraphicsQueue() vk.Queue { return d.gque }

// CommandBuffer returns the Vulkan handle behind cb, for
// recording commands beyond what present.Device exposes.
func (d *Device) CommandBuffer(cb present.CmdBuffer) vk.CommandBuffer { return d.cmds[cb] }

// ImageView returns the Vulkan handle behind v, for use as a
// framebuffer attachment.
func (d *Device) ImageView(v present.View) vk.ImageView { return d.views[v] }

// Image returns the Vulkan handle behind img, for use in
// layout transitions recorded by the rendering layer.
func (d *Device) Image(img present.Image) vk.Image { return d.imgs[img] }

// MemoryIndex selects a memory type contained in typeBits
// whose properties include props. It returns -1 if none
// suffices.
func (d *Device) MemoryIndex(typeBits uint32, props vk.MemoryPropertyFlags) int {
	var mem vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(d.pdev, &mem)
	mem.Deref()
	for i := 0; i < int(mem.MemoryTypeCount); i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		mem.MemoryTypes[i].Deref()
		if mem.MemoryTypes[i].PropertyFlags&props == props {
			return i
		}
	}
	return -1
}

// OneShot allocates a transient command buffer, records f
// into it, submits it to the graphics queue and waits for
// completion. The rendering layer uses it for staging
// uploads; the Device itself uses it to transition new swap
// chain images.
func (d *Device) OneShot(f func(cb vk.CommandBuffer)) error {
	alloc := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cbs := make([]vk.CommandBuffer, 1)
	if err := vk.Error(vk.AllocateCommandBuffers(d.dev, &alloc, cbs)); err != nil {
		return fmt.Errorf("vkdev: command buffer allocation: %w", err)
	}
	defer vk.FreeCommandBuffers(d.dev, d.pool, 1, cbs)
	begin := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(cbs[0], &begin)); err != nil {
		return fmt.Errorf("vkdev: command recording: %w", err)
	}
	f(cbs[0])
	if err := vk.Error(vk.EndCommandBuffer(cbs[0])); err != nil {
		return fmt.Errorf("vkdev: command recording: %w", err)
	}
	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    cbs,
	}
	if err := vk.Error(vk.QueueSubmit(d.gque, 1, []vk.SubmitInfo{submit}, vk.NullFence)); err != nil {
		return fmt.Errorf("vkdev: queue submission: %w", err)
	}
	return vk.Error(vk.QueueWaitIdle(d.gque))
}
