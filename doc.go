// Package rgraph compiles an immediate-mode description of one frame's GPU
// work — render passes plus the images they read and write, grouped into
// components — into a hazard-free sequence of low level commands: image
// allocation, layout transitions, pipeline barriers, render pass begin/end,
// user draw callbacks and a final swapchain blit.
//
// The package never talks to a GPU API directly. It is driven through the
// Device and CommandList interfaces, which a concrete backend (see
// sibling package vkdevice) implements on top of Vulkan.
package rgraph
